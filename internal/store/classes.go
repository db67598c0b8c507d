// Rollcall - Attendance Tracking and Ledger Attestation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/rollcall/internal/models"
)

// GetClass loads a class roster.
func (s *Store) GetClass(ctx context.Context, classID string) (*models.Class, error) {
	var class models.Class
	err := s.view(ctx, "get_class", func(txn *badger.Txn) error {
		return getJSON(txn, classKey(classID), &class)
	})
	if err != nil {
		return nil, err
	}
	return &class, nil
}

// PutClass creates or replaces a class and keeps the teacher index current.
func (s *Store) PutClass(ctx context.Context, class *models.Class) error {
	if class.ID == "" {
		return errors.New("class id is required")
	}
	now := time.Now().UTC()

	return s.update(ctx, "put_class", func(txn *badger.Txn) error {
		var prev models.Class
		err := getJSON(txn, classKey(class.ID), &prev)
		switch {
		case errors.Is(err, ErrNotFound):
			class.CreatedAt = now
		case err != nil:
			return err
		default:
			class.CreatedAt = prev.CreatedAt
			if prev.TeacherID != "" && prev.TeacherID != class.TeacherID {
				if err := txn.Delete(teacherClassKey(prev.TeacherID, class.ID)); err != nil {
					return fmt.Errorf("drop teacher index: %w", err)
				}
			}
		}
		class.UpdatedAt = now

		if err := setJSON(txn, classKey(class.ID), class); err != nil {
			return err
		}
		if class.TeacherID != "" {
			return txn.Set(teacherClassKey(class.TeacherID, class.ID), nil)
		}
		return nil
	})
}

// ListClassesByTeacher returns the classes assigned to a teacher, by name.
func (s *Store) ListClassesByTeacher(ctx context.Context, teacherID string) ([]*models.Class, error) {
	var classes []*models.Class
	err := s.view(ctx, "list_classes_by_teacher", func(txn *badger.Txn) error {
		var ids []string
		if err := scanPrefix(txn, teacherClassPrefix(teacherID), func(id string) error {
			ids = append(ids, id)
			return nil
		}); err != nil {
			return err
		}
		for _, id := range ids {
			var c models.Class
			if err := getJSON(txn, classKey(id), &c); err != nil {
				if errors.Is(err, ErrNotFound) {
					continue
				}
				return err
			}
			classes = append(classes, &c)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(classes, func(i, j int) bool { return classes[i].Name < classes[j].Name })
	return classes, nil
}
