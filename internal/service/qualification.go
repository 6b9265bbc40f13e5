package service

import (
	"fmt"
	"time"

	"github.com/mendten/camp-mitzvah-tracker-sub001/internal/dto"
	"github.com/mendten/camp-mitzvah-tracker-sub001/internal/models"
)

// QualificationNotSubmitted is the display status for a day with no stored
// submission; the count then reflects the camper's live working set.
const QualificationNotSubmitted = "not_submitted"

// EvaluateDay derives a camper's standing for one date. The counted set is
// the stored submission's missions when one exists, otherwise the camper's
// live working selections; qualification is purely count vs threshold. An
// edit_requested submission keeps counting its stored set until the edit is
// applied. Thresholds are applied at read time so a changed setting
// retroactively reclassifies past days.
func EvaluateDay(sub *models.Submission, workingCount, dailyRequired int) dto.QualificationView {
	view := dto.QualificationView{Required: dailyRequired}
	if sub == nil {
		view.Count = workingCount
		view.Status = QualificationNotSubmitted
	} else {
		view.Count = len(sub.Missions)
		view.Status = string(sub.Status)
	}
	view.Qualified = view.Count >= dailyRequired
	return view
}

// EvaluateWeek aggregates approved submissions inside [from, to] inclusive.
// Only approved days contribute missions; the weekly threshold counts total
// missions across the week, not qualified days.
func EvaluateWeek(history []models.Submission, from, to string, dailyRequired, weeklyRequired int) dto.WeeklyProgressView {
	view := dto.WeeklyProgressView{WeeklyRequired: weeklyRequired}
	for i := range history {
		sub := &history[i]
		if sub.Date < from || sub.Date > to {
			continue
		}
		if sub.Status != models.SubmissionStatusApproved {
			continue
		}
		count := len(sub.Missions)
		view.MissionsTotal += count
		if count >= dailyRequired {
			view.DaysQualified++
		}
	}
	view.Qualified = view.MissionsTotal >= weeklyRequired
	return view
}

// WeekBounds returns the Sunday-to-Saturday window containing the date.
// Camp weeks run Sunday through Shabbat.
func WeekBounds(date string) (string, string, error) {
	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		return "", "", fmt.Errorf("parse date %q: %w", date, err)
	}
	start := day.AddDate(0, 0, -int(day.Weekday()))
	end := start.AddDate(0, 0, 6)
	return start.Format("2006-01-02"), end.Format("2006-01-02"), nil
}
