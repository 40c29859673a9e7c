package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/normanking/empath/internal/bus"
	"github.com/normanking/empath/internal/metrics"
	"github.com/normanking/empath/internal/pipeline"
)

// ═══════════════════════════════════════════════════════════════════════════════
// REPLAY COMMAND (transcript processing)
// ═══════════════════════════════════════════════════════════════════════════════

// Transcript is a YAML file of scripted sessions.
type Transcript struct {
	Sessions []TranscriptSession `yaml:"sessions"`
}

// TranscriptSession is one scripted session; its turns run in order.
type TranscriptSession struct {
	ID      string           `yaml:"id"`
	User    string           `yaml:"user"`
	Persona string           `yaml:"persona"`
	Turns   []TranscriptTurn `yaml:"turns"`
}

// TranscriptTurn is one scripted message with optional caller context.
type TranscriptTurn struct {
	Text        string             `yaml:"text"`
	Mood        string             `yaml:"mood,omitempty"`
	EmotionData map[string]float64 `yaml:"emotion_data,omitempty"`
	MemoryHints []string           `yaml:"memory_hints,omitempty"`
	Persona     string             `yaml:"persona,omitempty"`
}

// ReplayResult pairs a session with the envelopes of its turns.
type ReplayResult struct {
	Session   string               `json:"session"`
	Envelopes []*pipeline.Envelope `json:"envelopes"`
}

// parseTranscript decodes and checks a transcript.
func parseTranscript(r io.Reader) (*Transcript, error) {
	var t Transcript
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&t); err != nil {
		return nil, fmt.Errorf("failed to parse transcript: %w", err)
	}
	seen := make(map[string]bool, len(t.Sessions))
	for i := range t.Sessions {
		s := &t.Sessions[i]
		if s.ID == "" {
			s.ID = fmt.Sprintf("replay-%d", i+1)
		}
		if seen[s.ID] {
			return nil, fmt.Errorf("duplicate session id %q", s.ID)
		}
		seen[s.ID] = true
	}
	return &t, nil
}

// replay runs every session concurrently, at most limit at a time. Results
// come back in transcript order.
func replay(ctx context.Context, p *pipeline.Pipeline, t *Transcript, limit int) ([]ReplayResult, error) {
	results := make([]ReplayResult, len(t.Sessions))

	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, s := range t.Sessions {
		g.Go(func() error {
			res := ReplayResult{Session: s.ID, Envelopes: make([]*pipeline.Envelope, 0, len(s.Turns))}
			for _, turn := range s.Turns {
				if err := gctx.Err(); err != nil {
					return err
				}
				name := turn.Persona
				if name == "" {
					name = s.Persona
				}
				res.Envelopes = append(res.Envelopes, p.Process(gctx, s.User, turn.Text, pipeline.TurnContext{
					Mood:        turn.Mood,
					EmotionData: turn.EmotionData,
					MemoryHints: turn.MemoryHints,
					SessionID:   s.ID,
					Persona:     name,
				}))
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func replayCmd() *cobra.Command {
	var (
		concurrency int
		asJSON      bool
	)

	cmd := &cobra.Command{
		Use:   "replay [transcript.yaml]",
		Short: "Process a YAML transcript of sessions",
		Long: `Replay scripted sessions through the pipeline and print every envelope.
Sessions run concurrently; turns inside a session run in order.

Transcript format:
  sessions:
    - id: s1
      user: alice
      persona: coach
      turns:
        - text: "I want to run a marathon this year"
        - text: "I'm nervous I'll give up"
          memory_hints: ["training plan"]`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open transcript: %w", err)
			}
			t, err := parseTranscript(f)
			f.Close()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			turns := 0
			for _, s := range t.Sessions {
				turns += len(s.Turns)
			}
			a, err := newApp(ctx, cfg, 4*turns+16)
			if err != nil {
				return err
			}
			defer a.Close()

			results, err := replay(ctx, a.pipeline, t, concurrency)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				for _, r := range results {
					if err := enc.Encode(r); err != nil {
						return err
					}
				}
				return nil
			}

			for _, r := range results {
				fmt.Println(labelStyle.Render("── session ") + valueStyle.Render(r.Session))
				for _, env := range r.Envelopes {
					fmt.Print(renderEnvelope(env))
				}
				fmt.Println()
			}
			fmt.Println(metrics.NewDashboard().RenderCompact(summarize(a.bus.History())))
			return nil
		},
	}

	cmd.Flags().IntVarP(&concurrency, "concurrency", "c", 4, "sessions processed at once (0 = unlimited)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print one JSON result per session")
	return cmd
}

// summarize folds recorded events into a fresh snapshot.
func summarize(events []bus.Event) metrics.Snapshot {
	c := metrics.NewCollector(nil, nil)
	for _, e := range events {
		c.Observe(e)
	}
	return c.Snapshot()
}
