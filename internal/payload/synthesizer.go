// Package payload builds randomized issue creation bodies from a read-only
// snapshot of project metadata.
package payload

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/torosent/issuecrank/internal/sampler"
	"github.com/torosent/issuecrank/internal/tracker"
)

const (
	TypeInitiative = "initiative"
	TypeEpic       = "epic"
)

var (
	hourEstimates  = []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20}
	pointEstimates = []int{1, 2, 3, 5, 8, 13, 21}
)

// Chances are inclusion percentages (0..100) for each optional field.
type Chances struct {
	Member     int
	Label      int
	Initiative int // epics only
	Epic       int // leaf types only
	Status     int // leaf types only
}

// DefaultChances returns the stock inclusion percentages.
func DefaultChances() Chances {
	return Chances{
		Member:     30,
		Label:      30,
		Initiative: 20,
		Epic:       20,
		Status:     100,
	}
}

// Snapshot is the project metadata issues are linked against. It is never
// modified by the synthesizer.
type Snapshot struct {
	Initiatives []tracker.Issue
	Epics       []tracker.Issue
	Members     []tracker.ProjectMember
	Labels      []tracker.Label
	Statuses    []tracker.IssueStatus
}

// Synthesizer generates issue payloads. It is not safe for concurrent use;
// synthesize every payload before dispatching the create calls.
type Synthesizer struct {
	chances Chances
	src     sampler.Source
	faker   *gofakeit.Faker
}

// Option customizes a Synthesizer.
type Option func(*Synthesizer)

// WithChances overrides the inclusion percentages.
func WithChances(c Chances) Option {
	return func(s *Synthesizer) { s.chances = c }
}

// WithSource sets the entropy used for sampling and estimates.
func WithSource(src sampler.Source) Option {
	return func(s *Synthesizer) { s.src = src }
}

// WithFaker sets the generator used for titles and descriptions.
func WithFaker(f *gofakeit.Faker) Option {
	return func(s *Synthesizer) { s.faker = f }
}

func New(opts ...Option) *Synthesizer {
	s := &Synthesizer{
		chances: DefaultChances(),
		src:     sampler.Default,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.faker == nil {
		s.faker = gofakeit.New(0)
	}
	return s
}

// Synthesize builds one creation body for issueType.
//
// Initiatives carry no linkage. Epics may link to an initiative. Every other
// type may link to an epic and may start in a sampled status.
func (s *Synthesizer) Synthesize(issueType string, prefs tracker.ProjectPreferences, snap Snapshot) (tracker.CreateIssueRequest, error) {
	req := tracker.CreateIssueRequest{
		Type:   issueType,
		Title:  s.catchPhrase(),
		Labels: []string{},
	}
	description := strings.Join([]string{s.catchPhrase(), s.catchPhrase(), s.catchPhrase(), s.catchPhrase()}, ", ")
	req.Description = &description

	member, ok, err := sampler.SampleFrom(s.src, snap.Members, s.chances.Member)
	if err != nil {
		return tracker.CreateIssueRequest{}, fmt.Errorf("sample member: %w", err)
	}
	if ok && member.User != nil {
		req.AssigneeID = ptr(member.User.ID)
	}

	label, ok, err := sampler.SampleFrom(s.src, snap.Labels, s.chances.Label)
	if err != nil {
		return tracker.CreateIssueRequest{}, fmt.Errorf("sample label: %w", err)
	}
	if ok {
		req.Labels = []string{label.ID}
	}

	switch issueType {
	case TypeInitiative:
	case TypeEpic:
		initiative, ok, err := sampler.SampleFrom(s.src, snap.Initiatives, s.chances.Initiative)
		if err != nil {
			return tracker.CreateIssueRequest{}, fmt.Errorf("sample initiative: %w", err)
		}
		if ok {
			req.InitiativeID = ptr(initiative.ID)
		}
	default:
		epic, ok, err := sampler.SampleFrom(s.src, snap.Epics, s.chances.Epic)
		if err != nil {
			return tracker.CreateIssueRequest{}, fmt.Errorf("sample epic: %w", err)
		}
		if ok {
			req.EpicID = ptr(epic.ID)
		}
		status, ok, err := sampler.SampleFrom(s.src, snap.Statuses, s.chances.Status)
		if err != nil {
			return tracker.CreateIssueRequest{}, fmt.Errorf("sample status: %w", err)
		}
		if ok {
			req.Status = ptr(status.ID)
		}
	}

	if prefs.EstimateType != "" {
		req.EstimateType = ptr(prefs.EstimateType)
	}
	domain := hourEstimates
	if prefs.EstimateType == tracker.EstimatePoints {
		domain = pointEstimates
	}
	estimate, _ := sampler.Pick(s.src, domain)
	req.Estimate = &estimate

	return req, nil
}

// SynthesizeBatch builds n payloads of the same type.
func (s *Synthesizer) SynthesizeBatch(n int, issueType string, prefs tracker.ProjectPreferences, snap Snapshot) ([]tracker.CreateIssueRequest, error) {
	out := make([]tracker.CreateIssueRequest, 0, n)
	for i := 0; i < n; i++ {
		req, err := s.Synthesize(issueType, prefs, snap)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, nil
}

// catchPhrase returns a short marketing-style phrase such as
// "Synergistic leverage e-markets".
func (s *Synthesizer) catchPhrase() string {
	phrase := s.faker.BuzzWord() + " " + s.faker.BS()
	r, size := utf8.DecodeRuneInString(phrase)
	if r == utf8.RuneError {
		return phrase
	}
	return string(unicode.ToUpper(r)) + phrase[size:]
}

func ptr[T any](v T) *T { return &v }
