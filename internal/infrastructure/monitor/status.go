package monitor

import "time"

type Status struct {
	Reader      bool      `json:"reader"`
	Writer      bool      `json:"writer"`
	Redis       bool      `json:"redis"`
	Journal     bool      `json:"journal"`
	JournalSize int       `json:"journal_size"`
	LastCheck   time.Time `json:"last_check"`
}
