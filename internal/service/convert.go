package service

import (
	"github.com/lifetrack/internal/analytics"
	"github.com/lifetrack/internal/db"
)

func toAnalyticsHabit(habit db.Habit) analytics.Habit {
	return analytics.Habit{
		ID:         habit.ID.String(),
		Name:       habit.Name,
		Frequency:  analytics.ParseFrequency(habit.Frequency),
		TargetDays: habit.TargetDays,
	}
}

func toAnalyticsEntries(entries []db.HabitEntry) []analytics.Entry {
	result := make([]analytics.Entry, 0, len(entries))
	for _, entry := range entries {
		result = append(result, analytics.Entry{
			Date:      entry.EntryDate,
			Completed: entry.Completed,
			Mood:      entry.Mood,
			Notes:     entry.Notes,
		})
	}
	return result
}
