package service

import (
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mendten/camp-mitzvah-tracker-sub001/internal/models"
)

func approvedSubmission(date string, missions ...string) models.Submission {
	return models.Submission{
		Date:     date,
		Missions: pq.StringArray(missions),
		Status:   models.SubmissionStatusApproved,
	}
}

func TestEvaluateDayNoSubmission(t *testing.T) {
	view := EvaluateDay(nil, 0, 3)
	assert.Equal(t, QualificationNotSubmitted, view.Status)
	assert.False(t, view.Qualified)

	view = EvaluateDay(nil, 2, 3)
	assert.Equal(t, QualificationNotSubmitted, view.Status)
	assert.Equal(t, 2, view.Count)
	assert.False(t, view.Qualified)

	// A full working set qualifies the day even before a formal submit.
	view = EvaluateDay(nil, 3, 3)
	assert.Equal(t, QualificationNotSubmitted, view.Status)
	assert.True(t, view.Qualified)
}

func TestEvaluateDayThreshold(t *testing.T) {
	sub := approvedSubmission("2026-07-01", "shacharit", "torah-study", "chesed")

	view := EvaluateDay(&sub, 0, 3)
	assert.True(t, view.Qualified)
	assert.Equal(t, 3, view.Count)

	// Raising the threshold reclassifies the same submission.
	view = EvaluateDay(&sub, 0, 4)
	assert.False(t, view.Qualified)
}

func TestEvaluateDayCountsRegardlessOfStatus(t *testing.T) {
	sub := approvedSubmission("2026-07-01", "shacharit", "torah-study", "chesed")
	sub.Status = models.SubmissionStatusSubmitted

	view := EvaluateDay(&sub, 0, 3)
	assert.True(t, view.Qualified)
	assert.Equal(t, string(models.SubmissionStatusSubmitted), view.Status)
}

func TestEvaluateDayEditRequestedKeepsItsSet(t *testing.T) {
	sub := approvedSubmission("2026-07-01", "shacharit", "torah-study", "chesed")
	sub.Status = models.SubmissionStatusEditRequested

	// The stored set keeps counting until an edit is applied; the live
	// working set is ignored while a submission exists.
	view := EvaluateDay(&sub, 1, 3)
	assert.True(t, view.Qualified)
	assert.Equal(t, 3, view.Count)
	assert.Equal(t, string(models.SubmissionStatusEditRequested), view.Status)
}

func TestEvaluateWeekCountsApprovedOnly(t *testing.T) {
	history := []models.Submission{
		approvedSubmission("2026-06-28", "shacharit", "torah-study", "chesed"),
		approvedSubmission("2026-06-29", "shacharit", "mincha", "torah-study", "chesed"),
		{Date: "2026-06-30", Missions: pq.StringArray{"shacharit", "chesed", "journal"}, Status: models.SubmissionStatusSubmitted},
		approvedSubmission("2026-07-10", "shacharit", "torah-study", "chesed"),
	}

	view := EvaluateWeek(history, "2026-06-28", "2026-07-04", 3, 15)
	assert.Equal(t, 2, view.DaysQualified)
	assert.Equal(t, 7, view.MissionsTotal)
	assert.False(t, view.Qualified)

	view = EvaluateWeek(history, "2026-06-28", "2026-07-04", 3, 7)
	assert.True(t, view.Qualified)
}

func TestWeekBounds(t *testing.T) {
	// 2026-07-01 is a Wednesday; the camp week starts the prior Sunday.
	from, to, err := WeekBounds("2026-07-01")
	require.NoError(t, err)
	assert.Equal(t, "2026-06-28", from)
	assert.Equal(t, "2026-07-04", to)

	// A Sunday anchors its own week.
	from, to, err = WeekBounds("2026-06-28")
	require.NoError(t, err)
	assert.Equal(t, "2026-06-28", from)
	assert.Equal(t, "2026-07-04", to)

	_, _, err = WeekBounds("bad-date")
	assert.Error(t, err)
}
