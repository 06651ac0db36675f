// Package testcase persists confirmed generated tests.
package testcase

import (
	"time"
)

// TestCase is a generated test the user confirmed and saved, together
// with the source it was generated from.
type TestCase struct {
	ID            string    `json:"id"`
	Code          string    `json:"code"`
	GeneratedTest string    `json:"generated_test"`
	TestType      string    `json:"test_type"`
	Language      string    `json:"language"`
	Status        string    `json:"status"`
	Provider      string    `json:"provider,omitempty"`
	Model         string    `json:"model,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// StatusConfirmed is the default status for saved test cases.
const StatusConfirmed = "confirmed"
