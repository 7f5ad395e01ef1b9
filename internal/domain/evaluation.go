// Package domain holds the pure business rules for 360° evaluations:
// cycle completeness detection and competency score aggregation. It has no
// database or transport dependencies.
package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Relationship of an evaluator to the person being evaluated.
const (
	RelationshipSelf         = "self"
	RelationshipManager      = "manager"
	RelationshipPeer         = "peer"
	RelationshipDirectReport = "direct_report"
)

// Evaluation statuses.
const (
	StatusPending   = "pending"
	StatusSubmitted = "submitted"
	StatusCancelled = "cancelled"
)

// Default completeness thresholds.
const (
	DefaultMinPeers         = 2
	DefaultMinDirectReports = 0
)

// CompetencyScore is a single skill rating inside an evaluation.
type CompetencyScore struct {
	SkillID  uuid.UUID
	Score    float64
	Comments string
}

// Evaluation is one evaluator's submitted feedback about a subject.
type Evaluation struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	CycleID      uuid.UUID
	EvaluatorID  uuid.UUID
	Relationship string
	Status       string
	SubmittedAt  *time.Time
	Scores       []CompetencyScore
}

// IsSubmitted reports whether the evaluation counts toward completeness and
// aggregation.
func (e Evaluation) IsSubmitted() bool {
	return e.Status == StatusSubmitted
}

// CycleComplete checks whether a subject has enough submitted evaluations in
// a cycle: at least one self, one manager, minPeers peers and
// minDirectReports direct reports. Only submitted evaluations count.
// When incomplete, reason names every missing category.
func CycleComplete(evals []Evaluation, minPeers, minDirectReports int) (bool, string) {
	counts := map[string]int{}
	for _, e := range evals {
		if e.IsSubmitted() {
			counts[e.Relationship]++
		}
	}

	var missing []string
	if counts[RelationshipSelf] < 1 {
		missing = append(missing, "self-evaluation")
	}
	if counts[RelationshipManager] < 1 {
		missing = append(missing, "manager evaluation")
	}
	if counts[RelationshipPeer] < minPeers {
		missing = append(missing, fmt.Sprintf(
			"at least %d peer evaluations (has %d)", minPeers, counts[RelationshipPeer]))
	}
	if counts[RelationshipDirectReport] < minDirectReports {
		missing = append(missing, fmt.Sprintf(
			"at least %d direct report evaluations (has %d)", minDirectReports, counts[RelationshipDirectReport]))
	}

	if len(missing) > 0 {
		return false, "Missing: " + strings.Join(missing, ", ")
	}
	return true, ""
}

// RawStats is the per-skill statistics breakdown persisted verbatim as JSON
// alongside the aggregated score. The skills assessment payload is built
// from it later, so field names are part of the stored contract.
type RawStats struct {
	SelfScores         []float64 `json:"self_scores"`
	PeerScores         []float64 `json:"peer_scores"`
	ManagerScores      []float64 `json:"manager_scores"`
	DirectReportScores []float64 `json:"direct_report_scores"`
	SelfAvg            *float64  `json:"self_avg"`
	PeerAvg            *float64  `json:"peer_avg"`
	ManagerAvg         *float64  `json:"manager_avg"`
	DirectReportAvg    *float64  `json:"direct_report_avg"`
	NSelf              int       `json:"n_self"`
	NPeer              int       `json:"n_peer"`
	NManager           int       `json:"n_manager"`
	NDirectReport      int       `json:"n_direct_report"`
}

// SkillStats is the aggregated result for one skill.
type SkillStats struct {
	OverallAvg float64
	Confidence float64
	Raw        RawStats
}

// AggregateScores consolidates competency scores from submitted evaluations
// into per-skill statistics: an average per evaluator relationship, an
// overall average across every included score, and a confidence derived
// from the total sample count.
func AggregateScores(evals []Evaluation) map[uuid.UUID]SkillStats {
	type buckets struct {
		self, peer, manager, directReport []float64
	}
	bySkill := map[uuid.UUID]*buckets{}

	for _, e := range evals {
		if !e.IsSubmitted() {
			continue
		}
		for _, cs := range e.Scores {
			b := bySkill[cs.SkillID]
			if b == nil {
				b = &buckets{}
				bySkill[cs.SkillID] = b
			}
			switch e.Relationship {
			case RelationshipSelf:
				b.self = append(b.self, cs.Score)
			case RelationshipPeer:
				b.peer = append(b.peer, cs.Score)
			case RelationshipManager:
				b.manager = append(b.manager, cs.Score)
			case RelationshipDirectReport:
				b.directReport = append(b.directReport, cs.Score)
			}
		}
	}

	aggregated := make(map[uuid.UUID]SkillStats, len(bySkill))
	for skillID, b := range bySkill {
		all := make([]float64, 0, len(b.self)+len(b.peer)+len(b.manager)+len(b.directReport))
		all = append(all, b.self...)
		all = append(all, b.peer...)
		all = append(all, b.manager...)
		all = append(all, b.directReport...)

		overall := 0.0
		if len(all) > 0 {
			overall = mean(all)
		}

		aggregated[skillID] = SkillStats{
			OverallAvg: overall,
			Confidence: confidenceForSampleCount(len(all)),
			Raw: RawStats{
				SelfScores:         b.self,
				PeerScores:         b.peer,
				ManagerScores:      b.manager,
				DirectReportScores: b.directReport,
				SelfAvg:            meanOrNil(b.self),
				PeerAvg:            meanOrNil(b.peer),
				ManagerAvg:         meanOrNil(b.manager),
				DirectReportAvg:    meanOrNil(b.directReport),
				NSelf:              len(b.self),
				NPeer:              len(b.peer),
				NManager:           len(b.manager),
				NDirectReport:      len(b.directReport),
			},
		}
	}
	return aggregated
}

// confidenceForSampleCount maps total sample count to a confidence step.
// More evaluations mean a more reliable consolidated score.
func confidenceForSampleCount(n int) float64 {
	switch {
	case n >= 5:
		return 0.9
	case n >= 3:
		return 0.7
	case n >= 1:
		return 0.5
	default:
		return 0.0
	}
}

func mean(xs []float64) float64 {
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func meanOrNil(xs []float64) *float64 {
	if len(xs) == 0 {
		return nil
	}
	m := mean(xs)
	return &m
}
