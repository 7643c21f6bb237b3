package harness

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/musehq/muse/internal/score"
)

// Scenario defines a conformance test scenario: a commit history plus a
// single operation to run against it. Scenario files are YAML; the
// executed trace is compared against a golden file.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Project is the project id commits are recorded under.
	// Defaults to "test-project".
	Project string `yaml:"project,omitempty"`

	// Commits lists the history to build, in recording order. Each
	// commit needs an explicit created_at so traces are deterministic.
	Commits []CommitStep `yaml:"commits"`

	// Operation is what the scenario exercises after the history exists.
	Operation Operation `yaml:"operation"`
}

// CommitStep describes one commit and its phrases.
type CommitStep struct {
	ID        string       `yaml:"id"`
	Intent    string       `yaml:"intent,omitempty"`
	Parent    string       `yaml:"parent,omitempty"`
	Parent2   string       `yaml:"parent2,omitempty"`
	CreatedAt int64        `yaml:"created_at"`
	Phrases   []PhraseStep `yaml:"phrases,omitempty"`
}

// PhraseStep describes one phrase's change streams.
type PhraseStep struct {
	Track     string       `yaml:"track"`
	Region    string       `yaml:"region"`
	StartBeat float64      `yaml:"start_beat"`
	EndBeat   float64      `yaml:"end_beat"`
	Notes     []NoteStep   `yaml:"notes,omitempty"`
	CC        []EventStep  `yaml:"cc,omitempty"`
	PitchBend []EventStep  `yaml:"pitch_bend,omitempty"`
	Aftertouch []EventStep `yaml:"aftertouch,omitempty"`
}

// NoteStep is one note change. Exactly one of Add/Remove/Modify is set.
type NoteStep struct {
	Add    *NoteSpec   `yaml:"add,omitempty"`
	Remove *NoteSpec   `yaml:"remove,omitempty"`
	Modify *NoteModify `yaml:"modify,omitempty"`
}

// NoteSpec is a literal note.
type NoteSpec struct {
	Pitch     int     `yaml:"pitch"`
	StartBeat float64 `yaml:"start_beat"`
	Duration  float64 `yaml:"duration"`
	Velocity  int     `yaml:"velocity"`
}

// NoteModify pairs the note being modified with its replacement.
type NoteModify struct {
	Before NoteSpec `yaml:"before"`
	After  NoteSpec `yaml:"after"`
}

// EventStep is one controller change. Exactly one of Add/Remove/Modify is set.
type EventStep struct {
	Add    *EventSpec   `yaml:"add,omitempty"`
	Remove *EventSpec   `yaml:"remove,omitempty"`
	Modify *EventModify `yaml:"modify,omitempty"`
}

// EventSpec is a literal controller event.
type EventSpec struct {
	Beat  float64 `yaml:"beat"`
	Value float64 `yaml:"value"`
}

// EventModify pairs the event being modified with its replacement.
type EventModify struct {
	Before EventSpec `yaml:"before"`
	After  EventSpec `yaml:"after"`
}

// Operation selects what the scenario runs.
//
// Types:
//   - "replay":   reconstruct the snapshot at Target
//   - "base":     find the merge base of Left and Right
//   - "merge":    full merge of Left and Right (base discovery included)
//   - "checkout": build the plan taking Working to Target
type Operation struct {
	Type    string `yaml:"type"`
	Target  string `yaml:"target,omitempty"`
	Working string `yaml:"working,omitempty"`
	Left    string `yaml:"left,omitempty"`
	Right   string `yaml:"right,omitempty"`

	// ResultID names the merge commit a successful merge records.
	// Defaults to "merge-result".
	ResultID string `yaml:"result_id,omitempty"`

	// Attributes is an inline merge-attributes document (same shape as
	// the attributes file) applied to merge operations.
	Attributes string `yaml:"attributes,omitempty"`
}

// Operation type constants.
const (
	OpReplay   = "replay"
	OpBase     = "base"
	OpMerge    = "merge"
	OpCheckout = "checkout"
)

// LoadScenario reads and validates a scenario from a YAML file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	return &s, nil
}

// Validate checks structural requirements before execution.
func (s *Scenario) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("scenario has no name")
	}
	seen := map[string]bool{}
	for i, c := range s.Commits {
		if c.ID == "" {
			return fmt.Errorf("commits[%d] has no id", i)
		}
		if seen[c.ID] {
			return fmt.Errorf("duplicate commit id %q", c.ID)
		}
		seen[c.ID] = true
		if c.Parent != "" && !seen[c.Parent] {
			return fmt.Errorf("commit %q references unknown parent %q", c.ID, c.Parent)
		}
		if c.Parent2 != "" && !seen[c.Parent2] {
			return fmt.Errorf("commit %q references unknown parent2 %q", c.ID, c.Parent2)
		}
	}
	switch s.Operation.Type {
	case OpReplay:
		if s.Operation.Target == "" {
			return fmt.Errorf("replay operation needs target")
		}
	case OpBase, OpMerge:
		if s.Operation.Left == "" || s.Operation.Right == "" {
			return fmt.Errorf("%s operation needs left and right", s.Operation.Type)
		}
	case OpCheckout:
		if s.Operation.Target == "" || s.Operation.Working == "" {
			return fmt.Errorf("checkout operation needs target and working")
		}
	default:
		return fmt.Errorf("unknown operation type %q", s.Operation.Type)
	}
	return nil
}

// toCommit converts a step into the model commit plus phrases.
func (c *CommitStep) toCommit(projectID string) (score.Commit, []score.Phrase, error) {
	commit := score.Commit{
		ID:        c.ID,
		ProjectID: projectID,
		Intent:    c.Intent,
		ParentID:  c.Parent,
		Parent2ID: c.Parent2,
		Status:    score.StatusActive,
		CreatedAt: c.CreatedAt,
	}
	var phrases []score.Phrase
	for i, ps := range c.Phrases {
		phrase, err := ps.ToPhrase(c.ID)
		if err != nil {
			return score.Commit{}, nil, fmt.Errorf("commit %s phrases[%d]: %w", c.ID, i, err)
		}
		commit.AffectedTrackIDs = appendUnique(commit.AffectedTrackIDs, phrase.TrackID)
		commit.AffectedRegionIDs = appendUnique(commit.AffectedRegionIDs, phrase.RegionID)
		phrases = append(phrases, phrase)
	}
	return commit, phrases, nil
}

func (ps *PhraseStep) ToPhrase(commitID string) (score.Phrase, error) {
	if err := checkFinite("start_beat", ps.StartBeat); err != nil {
		return score.Phrase{}, err
	}
	if err := checkFinite("end_beat", ps.EndBeat); err != nil {
		return score.Phrase{}, err
	}
	phrase := score.Phrase{
		CommitID:  commitID,
		TrackID:   ps.Track,
		RegionID:  ps.Region,
		StartBeat: ps.StartBeat,
		EndBeat:   ps.EndBeat,
	}
	for i, n := range ps.Notes {
		change, err := n.toChange()
		if err != nil {
			return score.Phrase{}, fmt.Errorf("notes[%d]: %w", i, err)
		}
		phrase.NoteChanges = append(phrase.NoteChanges, change)
	}
	streams := []struct {
		name  string
		steps []EventStep
		dst   *[]score.ControlChange
	}{
		{"cc", ps.CC, &phrase.CCEvents},
		{"pitch_bend", ps.PitchBend, &phrase.PitchBends},
		{"aftertouch", ps.Aftertouch, &phrase.Aftertouch},
	}
	for _, s := range streams {
		for i, e := range s.steps {
			change, err := e.toChange()
			if err != nil {
				return score.Phrase{}, fmt.Errorf("%s[%d]: %w", s.name, i, err)
			}
			*s.dst = append(*s.dst, change)
		}
	}
	return phrase, nil
}

func (n *NoteStep) toChange() (score.NoteChange, error) {
	switch {
	case n.Add != nil && n.Remove == nil && n.Modify == nil:
		if err := n.Add.validate(); err != nil {
			return score.NoteChange{}, err
		}
		after := n.Add.toEvent()
		return score.NoteChange{Type: score.ChangeAdded, After: &after}, nil
	case n.Remove != nil && n.Add == nil && n.Modify == nil:
		if err := n.Remove.validate(); err != nil {
			return score.NoteChange{}, err
		}
		before := n.Remove.toEvent()
		return score.NoteChange{Type: score.ChangeRemoved, Before: &before}, nil
	case n.Modify != nil && n.Add == nil && n.Remove == nil:
		if err := n.Modify.Before.validate(); err != nil {
			return score.NoteChange{}, err
		}
		if err := n.Modify.After.validate(); err != nil {
			return score.NoteChange{}, err
		}
		before := n.Modify.Before.toEvent()
		after := n.Modify.After.toEvent()
		return score.NoteChange{Type: score.ChangeModified, Before: &before, After: &after}, nil
	default:
		return score.NoteChange{}, fmt.Errorf("exactly one of add/remove/modify must be set")
	}
}

func (e *EventStep) toChange() (score.ControlChange, error) {
	switch {
	case e.Add != nil && e.Remove == nil && e.Modify == nil:
		if err := e.Add.validate(); err != nil {
			return score.ControlChange{}, err
		}
		after := e.Add.toEvent()
		return score.ControlChange{Type: score.ChangeAdded, After: &after}, nil
	case e.Remove != nil && e.Add == nil && e.Modify == nil:
		if err := e.Remove.validate(); err != nil {
			return score.ControlChange{}, err
		}
		before := e.Remove.toEvent()
		return score.ControlChange{Type: score.ChangeRemoved, Before: &before}, nil
	case e.Modify != nil && e.Add == nil && e.Remove == nil:
		if err := e.Modify.Before.validate(); err != nil {
			return score.ControlChange{}, err
		}
		if err := e.Modify.After.validate(); err != nil {
			return score.ControlChange{}, err
		}
		before := e.Modify.Before.toEvent()
		after := e.Modify.After.toEvent()
		return score.ControlChange{Type: score.ChangeModified, Before: &before, After: &after}, nil
	default:
		return score.ControlChange{}, fmt.Errorf("exactly one of add/remove/modify must be set")
	}
}

func (n *NoteSpec) toEvent() score.NoteEvent {
	return score.NoteEvent{Pitch: n.Pitch, StartBeat: n.StartBeat, Duration: n.Duration, Velocity: n.Velocity}
}

func (n *NoteSpec) validate() error {
	if err := checkFinite("start_beat", n.StartBeat); err != nil {
		return err
	}
	return checkFinite("duration", n.Duration)
}

func (e *EventSpec) toEvent() score.ControlEvent {
	return score.ControlEvent{Beat: e.Beat, Value: e.Value}
}

func (e *EventSpec) validate() error {
	if err := checkFinite("beat", e.Beat); err != nil {
		return err
	}
	return checkFinite("value", e.Value)
}

// checkFinite rejects NaN and infinities. YAML happily parses .nan and
// .inf, but beats and values must survive canonical serialization.
func checkFinite(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%s must be finite, got %v", name, v)
	}
	return nil
}

func appendUnique(list []string, s string) []string {
	for _, existing := range list {
		if existing == s {
			return list
		}
	}
	return append(list, s)
}
