package dynamo

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/addr-verify-api/internal/domain"
)

func TestNewestFirst_SortsAndTruncates(t *testing.T) {
	entries := []domain.AuditEntry{
		{EntryID: "01A"},
		{EntryID: "01C"},
		{EntryID: "01B"},
		{EntryID: "01D"},
	}

	got := newestFirst(entries, 3)
	assert.Len(t, got, 3)
	assert.Equal(t, "01D", got[0].EntryID)
	assert.Equal(t, "01C", got[1].EntryID)
	assert.Equal(t, "01B", got[2].EntryID)
}

func TestNewestFirst_ZeroLimitKeepsAll(t *testing.T) {
	entries := []domain.AuditEntry{{EntryID: "01A"}, {EntryID: "01B"}}
	got := newestFirst(entries, 0)
	assert.Len(t, got, 2)
	assert.Equal(t, "01B", got[0].EntryID)
}
