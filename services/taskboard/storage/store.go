// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/AleutianAI/Taskboard/services/taskboard/datatypes"
	"github.com/dgraph-io/badger/v4"
)

// Key prefixes of the typed collections.
const (
	taskPrefix    = "task/"
	commentPrefix = "comment/"
	mentionPrefix = "mention/"
	auditPrefix   = "audit/"
	userPrefix    = "user/"
)

// Store exposes the typed collections over one DB.
//
// # Thread Safety
//
// Safe for concurrent use.
type Store struct {
	db       *DB
	tasks    *Tasks
	comments *Comments
	mentions *Mentions
	audit    *AuditLog
	users    *Users
}

// NewStore builds the typed accessors on db.
func NewStore(db *DB) *Store {
	return &Store{
		db:       db,
		tasks:    &Tasks{c: collection[datatypes.Task]{db: db, kind: "task"}},
		comments: &Comments{c: collection[datatypes.Comment]{db: db, kind: "comment"}},
		mentions: &Mentions{c: collection[datatypes.Mention]{db: db, kind: "mention"}},
		audit:    &AuditLog{c: collection[datatypes.AuditEntry]{db: db, kind: "audit entry"}},
		users:    &Users{c: collection[datatypes.User]{db: db, kind: "user"}},
	}
}

// DB returns the underlying database.
func (s *Store) DB() *DB { return s.db }

func (s *Store) Tasks() *Tasks { return s.tasks }

func (s *Store) Comments() *Comments { return s.comments }

func (s *Store) Mentions() *Mentions { return s.mentions }

func (s *Store) Audit() *AuditLog { return s.audit }

func (s *Store) Users() *Users { return s.users }

// =============================================================================
// Generic collection
// =============================================================================

// collection stores JSON-encoded values of type T under string keys.
type collection[T any] struct {
	db   *DB
	kind string
}

func (c collection[T]) notFound(key string) error {
	return fmt.Errorf("%s %s: %w", c.kind, key, datatypes.ErrNotFound)
}

func (c collection[T]) get(ctx context.Context, key string) (*T, error) {
	var out T
	err := c.db.View(ctx, func(txn *badger.Txn) error {
		return readJSON(txn, key, &out)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, c.notFound(key)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s %s: %w", c.kind, key, err)
	}
	return &out, nil
}

func (c collection[T]) put(ctx context.Context, key string, v *T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", c.kind, err)
	}
	err = c.db.Update(ctx, func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
	if err != nil {
		return fmt.Errorf("put %s %s: %w", c.kind, key, err)
	}
	return nil
}

// update reads key, applies fn and writes the result in one transaction.
// Conflicts replay the read and fn.
func (c collection[T]) update(ctx context.Context, key string, fn func(*T) error) (*T, error) {
	var out T
	err := c.db.Update(ctx, func(txn *badger.Txn) error {
		var cur T
		if err := readJSON(txn, key, &cur); err != nil {
			return err
		}
		if err := fn(&cur); err != nil {
			return err
		}
		data, err := json.Marshal(&cur)
		if err != nil {
			return fmt.Errorf("encode %s: %w", c.kind, err)
		}
		out = cur
		return txn.Set([]byte(key), data)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, c.notFound(key)
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c collection[T]) delete(ctx context.Context, key string) error {
	err := c.db.Update(ctx, func(txn *badger.Txn) error {
		if _, err := txn.Get([]byte(key)); err != nil {
			return err
		}
		return txn.Delete([]byte(key))
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return c.notFound(key)
	}
	if err != nil {
		return fmt.Errorf("delete %s %s: %w", c.kind, key, err)
	}
	return nil
}

// scan decodes every value under prefix in key order, or reverse key order
// when newestFirst is set.
func (c collection[T]) scan(ctx context.Context, prefix string, newestFirst bool) ([]T, error) {
	out := make([]T, 0)
	err := c.db.View(ctx, func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = newestFirst

		it := txn.NewIterator(opts)
		defer it.Close()

		seek := []byte(prefix)
		if newestFirst {
			seek = append([]byte(prefix), 0xFF)
		}
		for it.Seek(seek); it.ValidForPrefix([]byte(prefix)); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var v T
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &v)
			}); err != nil {
				return fmt.Errorf("decode %s %s: %w", c.kind, it.Item().Key(), err)
			}
			out = append(out, v)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", c.kind, err)
	}
	return out, nil
}

func writeJSON(txn *badger.Txn, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return txn.Set([]byte(key), data)
}

func readJSON(txn *badger.Txn, key string, v any) error {
	item, err := txn.Get([]byte(key))
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}

// =============================================================================
// Tasks
// =============================================================================

// Tasks is the task collection, keyed task/<taskId>.
type Tasks struct {
	c collection[datatypes.Task]
}

func taskKey(id string) string { return taskPrefix + id }

// Get returns the task or an error wrapping datatypes.ErrNotFound.
func (t *Tasks) Get(ctx context.Context, id string) (*datatypes.Task, error) {
	return t.c.get(ctx, taskKey(id))
}

// Put writes the task unconditionally.
func (t *Tasks) Put(ctx context.Context, task *datatypes.Task) error {
	return t.c.put(ctx, taskKey(task.ID), task)
}

// Update applies fn to the stored task atomically and returns the result.
//
// # Description
//
// fn runs inside a read-write transaction and may be invoked more than
// once when a concurrent writer conflicts. Returning an error from fn
// aborts the update and is passed through unchanged.
func (t *Tasks) Update(ctx context.Context, id string, fn func(*datatypes.Task) error) (*datatypes.Task, error) {
	return t.c.update(ctx, taskKey(id), fn)
}

// Delete removes the task. Comments and mentions are left in place.
func (t *Tasks) Delete(ctx context.Context, id string) error {
	return t.c.delete(ctx, taskKey(id))
}

// List returns every task in key order.
func (t *Tasks) List(ctx context.Context) ([]datatypes.Task, error) {
	return t.c.scan(ctx, taskPrefix, false)
}

// =============================================================================
// Comments
// =============================================================================

// Comments is the comment collection, keyed comment/<taskId>/<commentId>.
type Comments struct {
	c collection[datatypes.Comment]
}

func commentKey(taskID, commentID string) string {
	return commentPrefix + taskID + "/" + commentID
}

func (c *Comments) Get(ctx context.Context, taskID, commentID string) (*datatypes.Comment, error) {
	return c.c.get(ctx, commentKey(taskID, commentID))
}

func (c *Comments) Put(ctx context.Context, comment *datatypes.Comment) error {
	return c.c.put(ctx, commentKey(comment.TaskID, comment.CommentID), comment)
}

// Update applies fn to the stored comment atomically.
func (c *Comments) Update(ctx context.Context, taskID, commentID string, fn func(*datatypes.Comment) error) (*datatypes.Comment, error) {
	return c.c.update(ctx, commentKey(taskID, commentID), fn)
}

// ListByTask returns the task's comments oldest first.
func (c *Comments) ListByTask(ctx context.Context, taskID string) ([]datatypes.Comment, error) {
	return c.c.scan(ctx, commentPrefix+taskID+"/", false)
}

// =============================================================================
// Comment and task in one transaction
// =============================================================================

// AddComment writes comment and applies adjust to its task atomically.
//
// # Description
//
// The task is read, passed to adjust and written back in the same
// transaction as the comment, so the comment never exists without its
// counter change. Conflicts replay the read and adjust.
//
// # Outputs
//
//   - *datatypes.Task: The task as committed.
//   - error: Wraps datatypes.ErrNotFound when the task is missing, in which
//     case nothing is written.
func (s *Store) AddComment(ctx context.Context, comment *datatypes.Comment, adjust func(*datatypes.Task)) (*datatypes.Task, error) {
	var out datatypes.Task
	err := s.db.Update(ctx, func(txn *badger.Txn) error {
		var task datatypes.Task
		if err := readJSON(txn, taskKey(comment.TaskID), &task); err != nil {
			return err
		}
		adjust(&task)
		if err := writeJSON(txn, commentKey(comment.TaskID, comment.CommentID), comment); err != nil {
			return err
		}
		out = task
		return writeJSON(txn, taskKey(task.ID), &task)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("task %s: %w", comment.TaskID, datatypes.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("add comment to task %s: %w", comment.TaskID, err)
	}
	return &out, nil
}

// RemoveComment deletes a comment and applies adjust to its task
// atomically.
//
// # Description
//
// check sees the stored comment before anything is written; its error
// aborts the transaction and is returned unchanged. A comment whose task
// was deleted is still removed, and the returned task is nil.
//
// # Outputs
//
//   - *datatypes.Comment: The removed comment.
//   - *datatypes.Task: The task as committed, or nil when it is gone.
//   - error: Wraps datatypes.ErrNotFound when the comment is missing.
func (s *Store) RemoveComment(
	ctx context.Context,
	taskID, commentID string,
	check func(*datatypes.Comment) error,
	adjust func(*datatypes.Task),
) (*datatypes.Comment, *datatypes.Task, error) {
	var (
		removed datatypes.Comment
		task    *datatypes.Task
	)
	errMissingComment := fmt.Errorf("comment %s: %w", commentKey(taskID, commentID), datatypes.ErrNotFound)
	err := s.db.Update(ctx, func(txn *badger.Txn) error {
		task = nil
		var comment datatypes.Comment
		if err := readJSON(txn, commentKey(taskID, commentID), &comment); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return errMissingComment
			}
			return err
		}
		if err := check(&comment); err != nil {
			return err
		}
		if err := txn.Delete([]byte(commentKey(taskID, commentID))); err != nil {
			return err
		}
		removed = comment

		var cur datatypes.Task
		err := readJSON(txn, taskKey(taskID), &cur)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		adjust(&cur)
		task = &cur
		return writeJSON(txn, taskKey(taskID), &cur)
	})
	if err != nil {
		return nil, nil, err
	}
	return &removed, task, nil
}

// =============================================================================
// Mentions
// =============================================================================

// Mentions is the notification collection, keyed mention/<recipient>/<key>.
type Mentions struct {
	c collection[datatypes.Mention]
}

func mentionKey(recipient, key string) string {
	return mentionPrefix + recipient + "/" + key
}

func (m *Mentions) Get(ctx context.Context, recipient, key string) (*datatypes.Mention, error) {
	return m.c.get(ctx, mentionKey(recipient, key))
}

func (m *Mentions) Put(ctx context.Context, mention *datatypes.Mention) error {
	return m.c.put(ctx, mentionKey(mention.Recipient, mention.Key), mention)
}

// Update applies fn to an existing mention. A missing key is ErrNotFound.
func (m *Mentions) Update(ctx context.Context, recipient, key string, fn func(*datatypes.Mention) error) (*datatypes.Mention, error) {
	return m.c.update(ctx, mentionKey(recipient, key), fn)
}

// ListByRecipient returns the recipient's mentions newest first.
func (m *Mentions) ListByRecipient(ctx context.Context, recipient string) ([]datatypes.Mention, error) {
	return m.c.scan(ctx, mentionPrefix+recipient+"/", true)
}

// =============================================================================
// Audit log
// =============================================================================

// AuditLog is the append-only audit collection, keyed audit/<entryId>.
type AuditLog struct {
	c collection[datatypes.AuditEntry]
}

// Append writes one entry. Entries are never rewritten.
func (a *AuditLog) Append(ctx context.Context, entry *datatypes.AuditEntry) error {
	return a.c.put(ctx, auditPrefix+entry.ID, entry)
}

// ListLatestFirst returns every entry newest first.
func (a *AuditLog) ListLatestFirst(ctx context.Context) ([]datatypes.AuditEntry, error) {
	return a.c.scan(ctx, auditPrefix, true)
}

// =============================================================================
// Users
// =============================================================================

// Users is the identity directory collection, keyed user/<username>.
type Users struct {
	c collection[datatypes.User]
}

func (u *Users) Get(ctx context.Context, username string) (*datatypes.User, error) {
	return u.c.get(ctx, userPrefix+username)
}

func (u *Users) Put(ctx context.Context, user *datatypes.User) error {
	return u.c.put(ctx, userPrefix+user.Username, user)
}

// Update applies fn to an existing user atomically.
func (u *Users) Update(ctx context.Context, username string, fn func(*datatypes.User) error) (*datatypes.User, error) {
	return u.c.update(ctx, userPrefix+username, fn)
}

// List returns every user ordered by username.
func (u *Users) List(ctx context.Context) ([]datatypes.User, error) {
	return u.c.scan(ctx, userPrefix, false)
}
