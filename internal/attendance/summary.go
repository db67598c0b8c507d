// Rollcall - Attendance Tracking and Ledger Attestation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

package attendance

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/tomtom215/rollcall/internal/models"
	"github.com/tomtom215/rollcall/internal/store"
)

// StudentSummary groups a student's records by class with per-class
// totals. Students may read only their own summary.
func (s *Service) StudentSummary(ctx context.Context, studentID string, requester models.Principal) (*models.StudentAttendanceSummary, error) {
	const op = "student_summary"

	if studentID == "" {
		return nil, errorf(KindValidation, op, "student id is required")
	}
	switch requester.Role {
	case models.RoleAdmin, models.RoleTeacher:
	case models.RoleStudent:
		if requester.ID != studentID {
			return nil, errorf(KindForbidden, op, "students may only read their own attendance")
		}
	default:
		return nil, errorf(KindForbidden, op, "unknown role")
	}

	rows, err := s.store.ListRecordsByStudent(ctx, studentID)
	if err != nil {
		return nil, storeError(op, err, KindNotFound, "student")
	}

	byClass := make(map[string]*models.ClassAttendance)
	for _, row := range rows {
		classID := row.Session.ClassID
		ca, ok := byClass[classID]
		if !ok {
			ca = &models.ClassAttendance{ClassID: classID, ClassName: classID}
			class, err := s.store.GetClass(ctx, classID)
			switch {
			case err == nil:
				ca.ClassName = class.Name
			case errors.Is(err, store.ErrNotFound):
			default:
				return nil, storeError(op, err, KindNotFound, "class")
			}
			byClass[classID] = ca
		}

		ca.Sessions = append(ca.Sessions, models.SessionAttendance{
			SessionID:   row.Session.ID,
			SessionName: row.Session.Name,
			Date:        row.Session.Date,
			IsPresent:   row.Record.IsPresent,
			MarkedAt:    row.Record.MarkedAt,
			IsFinalized: row.Record.IsFinalized,
		})
		ca.TotalSessions++
		if row.Record.IsPresent {
			ca.PresentCount++
		}
	}

	summary := &models.StudentAttendanceSummary{
		StudentID: studentID,
		Classes:   make([]models.ClassAttendance, 0, len(byClass)),
	}
	for _, ca := range byClass {
		ca.AttendancePercentage = attendancePercentage(ca.PresentCount, ca.TotalSessions)
		sort.SliceStable(ca.Sessions, func(i, j int) bool {
			return ca.Sessions[i].Date.After(ca.Sessions[j].Date)
		})
		summary.Classes = append(summary.Classes, *ca)
	}
	sort.Slice(summary.Classes, func(i, j int) bool {
		if summary.Classes[i].ClassName != summary.Classes[j].ClassName {
			return summary.Classes[i].ClassName < summary.Classes[j].ClassName
		}
		return summary.Classes[i].ClassID < summary.Classes[j].ClassID
	})
	return summary, nil
}

// attendancePercentage formats present/total with two decimals and a
// percent sign, e.g. "66.67%".
func attendancePercentage(present, total int) string {
	if total == 0 {
		return "0.00%"
	}
	return fmt.Sprintf("%.2f%%", float64(present)/float64(total)*100)
}
