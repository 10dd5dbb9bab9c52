package domain

import (
	"math"
	"time"
)

// SnapshotID keys the single "current platform stats" row.
const SnapshotID = "current"

// DefaultTotalUnits is the engagement denominator used when the unit count is unknown.
const DefaultTotalUnits int64 = 100

// PlatformStats is the persisted snapshot served to the marketing pages.
type PlatformStats struct {
	ActiveUsers       int64     `json:"active_users"`
	QuestionsAnswered int64     `json:"questions_answered"`
	PDFDownloads      int64     `json:"pdf_downloads"`
	EngagementRate    float64   `json:"engagement_rate"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// SameCounters reports whether two snapshots carry identical values, ignoring UpdatedAt.
func (s PlatformStats) SameCounters(other PlatformStats) bool {
	return s.ActiveUsers == other.ActiveUsers &&
		s.QuestionsAnswered == other.QuestionsAnswered &&
		s.PDFDownloads == other.PDFDownloads &&
		s.EngagementRate == other.EngagementRate
}

// defaultUpdatedAt is fixed so the fallback body is identical on every call.
var defaultUpdatedAt = time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)

// DefaultPlatformStats returns the placeholder shown whenever the backend cannot be consulted.
func DefaultPlatformStats() PlatformStats {
	return PlatformStats{
		ActiveUsers:       2847,
		QuestionsAnswered: 18493,
		PDFDownloads:      4221,
		EngagementRate:    0.94,
		UpdatedAt:         defaultUpdatedAt,
	}
}

// LiveStats is computed per request against the event log and never stored.
type LiveStats struct {
	ActiveUsers       int64   `json:"activeUsers"`
	QuestionsAnswered int64   `json:"questionsAnswered"`
	PDFDownloads      int64   `json:"pdfDownloads"`
	EngagementRate    float64 `json:"engagementRate"`
}

// UnitEngagementRate is the share of known units with recent activity.
// It backs the persisted snapshot.
func UnitEngagementRate(activeUsers, totalUnits int64) float64 {
	if activeUsers <= 0 || totalUnits <= 0 {
		return 0
	}
	return float64(activeUsers) / float64(totalUnits)
}

// InteractionRate is questions plus downloads per active user, as a percentage
// rounded to two decimals. It backs the live stats.
func InteractionRate(questions, downloads, activeUsers int64) float64 {
	if activeUsers <= 0 {
		return 0
	}
	rate := float64(questions+downloads) / float64(activeUsers) * 100
	return math.Round(rate*100) / 100
}

// NewLiveStats assembles live counters and derives the interaction rate.
func NewLiveStats(activeUsers, questions, downloads int64) LiveStats {
	return LiveStats{
		ActiveUsers:       activeUsers,
		QuestionsAnswered: questions,
		PDFDownloads:      downloads,
		EngagementRate:    InteractionRate(questions, downloads, activeUsers),
	}
}
