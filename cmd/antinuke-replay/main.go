// Command antinuke-replay runs a recorded or hand-written event scenario through the
// detector offline and prints every violation it would have acted on.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"discord-antinuke-bot/internal/antinuke/core"
	"discord-antinuke-bot/internal/antinuke/detector"
	"discord-antinuke-bot/internal/config"
	"discord-antinuke-bot/internal/models"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Scenario is a replayable sequence of attributed events
type Scenario struct {
	Settings ScenarioSettings `yaml:"settings"`
	Self     models.ActorID   `yaml:"self"`
	Events   []ScenarioEvent  `yaml:"events"`
}

// ScenarioSettings mirrors config.Settings; zero values fall back to the defaults
type ScenarioSettings struct {
	BanThreshold      int              `yaml:"threshold_bans"`
	DeletionThreshold int              `yaml:"threshold_deletions"`
	TimeWindow        int              `yaml:"time_window"`
	Whitelist         []models.ActorID `yaml:"whitelist"`
}

// ScenarioEvent is one event, At is the offset from the scenario start
type ScenarioEvent struct {
	At       time.Duration        `yaml:"at"`
	Actor    models.ActorID       `yaml:"actor"`
	Category models.EventCategory `yaml:"category"`
}

// Result is the detector verdict for one event
type Result struct {
	Event  ScenarioEvent
	Report *models.ViolationReport
}

func (s ScenarioSettings) settings() (config.Settings, error) {
	out := config.DefaultSettings()
	if s.BanThreshold != 0 {
		out.BanThreshold = s.BanThreshold
	}
	if s.DeletionThreshold != 0 {
		out.DeletionThreshold = s.DeletionThreshold
	}
	if s.TimeWindow != 0 {
		out.TimeWindow = s.TimeWindow
	}
	out.Whitelist = append(out.Whitelist, s.Whitelist...)
	return out, config.Validate(out)
}

// Replay evaluates every event in order against a fresh tracker
func Replay(sc Scenario) ([]Result, error) {
	settings, err := sc.Settings.settings()
	if err != nil {
		return nil, err
	}

	d := detector.NewViolationDetector(core.NewActorEventTracker(0))
	d.SetSelf(sc.Self)

	start := time.Unix(0, 0)
	results := make([]Result, 0, len(sc.Events))
	for i, ev := range sc.Events {
		if i > 0 && ev.At < sc.Events[i-1].At {
			return nil, fmt.Errorf("event %d: offsets must not decrease", i)
		}
		results = append(results, Result{
			Event:  ev,
			Report: d.Evaluate(ev.Actor, ev.Category, start.Add(ev.At), settings),
		})
	}
	return results, nil
}

// Print writes one row per event
func Print(w io.Writer, results []Result) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "AT\tACTOR\tCATEGORY\tVERDICT")
	for _, r := range results {
		verdict := "-"
		if r.Report != nil {
			verdict = "BAN: " + r.Report.Reason()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Event.At, r.Event.Actor, r.Event.Category, verdict)
	}
	return tw.Flush()
}

func main() {
	path := flag.String("scenario", "scenario.yaml", "scenario file to replay")
	flag.Parse()

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	data, err := os.ReadFile(*path)
	if err != nil {
		logger.Fatal("failed to read scenario", zap.String("path", *path), zap.Error(err))
	}

	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		logger.Fatal("failed to parse scenario", zap.Error(err))
	}

	results, err := Replay(sc)
	if err != nil {
		logger.Fatal("invalid scenario", zap.Error(err))
	}
	if err := Print(os.Stdout, results); err != nil {
		logger.Fatal("failed to print results", zap.Error(err))
	}

	violations := 0
	for _, r := range results {
		if r.Report != nil {
			violations++
		}
	}
	logger.Info("replay finished", zap.Int("events", len(results)), zap.Int("violations", violations))
}
