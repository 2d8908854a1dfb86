package cli

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFillFlagConflicts(t *testing.T) {
	cmd := NewRootCmd()
	cmd.SetArgs([]string{"fill", "--submit", "--recall"})
	err := cmd.Execute()
	assert.ErrorContains(t, err, "mutually exclusive")

	cmd = NewRootCmd()
	cmd.SetArgs([]string{"fill", "--week", "05/01/2026", "--from", "01/01/2026"})
	err = cmd.Execute()
	assert.ErrorContains(t, err, "mutually exclusive")
}

func TestSelectWeeks(t *testing.T) {
	weeks, err := selectWeeks("07/01/2026", "", "")
	require.NoError(t, err)
	require.Len(t, weeks, 1)
	assert.Equal(t, time.Monday, weeks[0].Start.Weekday())
	assert.Equal(t, 5, weeks[0].Start.Day())

	weeks, err = selectWeeks("", "05/01/2026", "08/02/2026")
	require.NoError(t, err)
	assert.Len(t, weeks, 5)

	_, err = selectWeeks("not-a-date", "", "")
	assert.ErrorContains(t, err, "dd/mm/yyyy")

	_, err = selectWeeks("", "08/02/2026", "05/01/2026")
	assert.Error(t, err)
}
