package database

import "time"

// ScrapeRun is one completed orchestrator run.
type ScrapeRun struct {
	ID          string `gorm:"primaryKey;size:36"`
	ArrivalDate string `gorm:"size:10;not null"`
	Nights      int
	Adults      int
	Rooms       int
	StartedAt   time.Time
	FinishedAt  time.Time `gorm:"index"`
	Properties  int
	Launched    int
	Succeeded   int
	Ineligible  int
	Failed      int
	CreatedAt   time.Time

	PropertyRecords []PropertyRecord   `gorm:"foreignKey:RunID;constraint:OnDelete:CASCADE"`
	DateResults     []DateResultRecord `gorm:"foreignKey:RunID;constraint:OnDelete:CASCADE"`
	Failures        []FailureRecord    `gorm:"foreignKey:RunID;constraint:OnDelete:CASCADE"`
}

// PropertyRecord is a catalog row as it was during a run.
type PropertyRecord struct {
	ID            uint   `gorm:"primaryKey"`
	RunID         string `gorm:"size:36;index:idx_property_run,unique,priority:1"`
	PropertyIndex int    `gorm:"index:idx_property_run,unique,priority:2"`
	CatalogOrder  int
	URL           string
	Name          string
	Type          string
	Latitude      float64
	Longitude     float64
	Street        string
	FullAddress   string
	Capacity      int
	PageName      string
	PageTitle     string
}

// DateResultRecord is one answered date. Price and MinStay are NULL for
// unavailable dates.
type DateResultRecord struct {
	ID            uint   `gorm:"primaryKey"`
	RunID         string `gorm:"size:36;index:idx_result_run_property"`
	PropertyIndex int    `gorm:"index:idx_result_run_property"`
	Date          string `gorm:"size:10"`
	Available     bool
	Price         *int
	MinStay       *int
}

// FailureRecord is one entry of a run's failure log.
type FailureRecord struct {
	ID            uint   `gorm:"primaryKey"`
	RunID         string `gorm:"size:36;index"`
	PropertyIndex int
	URL           string
	Kind          string `gorm:"size:16"`
	Status        int
	Attempts      int
	Message       string
}
