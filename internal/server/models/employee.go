package models

import "time"

// HireDetails are the fields a roster sync may refresh on an employee.
type HireDetails struct {
	HireDate  *time.Time
	StartDate *time.Time
	Position  string
	Wage      float64
}
