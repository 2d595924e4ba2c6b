package service

import (
	"testing"
)

func TestReviewService_Open(t *testing.T) {
	t.Skip("Requires test database setup")
}

func TestReviewService_Next(t *testing.T) {
	t.Skip("Requires test database setup")
}

func TestReviewService_MarkVisited(t *testing.T) {
	t.Skip("Requires test database setup")
}

func TestReviewService_Approvable(t *testing.T) {
	t.Skip("Requires test database setup")
}

func TestReviewService_Cleanup(t *testing.T) {
	t.Skip("Requires test database setup")
}
