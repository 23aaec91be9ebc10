package domain

import (
	"strings"
	"time"
)

type Customer struct {
	ID             int64     `json:"id"`
	Name           string    `json:"customerName"`
	RelevantPerson string    `json:"relevantPerson"`
	Address        string    `json:"address"`
	ContactNumber  string    `json:"contactNumber"`
	Email          string    `json:"email,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func (c *Customer) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return NewValidationError("customerName", "customer name is required")
	}
	return nil
}

// Contractor processes raw pistachios in the neighbourhood stage.
type Contractor struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	ContactNumber string    `json:"contactNumber"`
	Address       string    `json:"address"`
	CreatedAt     time.Time `json:"createdAt"`
}

func (c *Contractor) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return NewValidationError("name", "contractor name is required")
	}
	return nil
}
