// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package mentions

import (
	"context"
	"fmt"

	"github.com/AleutianAI/Taskboard/services/taskboard/datatypes"
)

// List returns the recipient's mentions newest first.
func (e *Engine) List(ctx context.Context, recipient string) ([]datatypes.Mention, error) {
	list, err := e.mentions.ListByRecipient(ctx, recipient)
	if err != nil {
		return nil, fmt.Errorf("list mentions for %s: %w", recipient, err)
	}
	return list, nil
}

// MarkRead sets the mention to READ and stamps ReadAt.
//
// Marking an already-read mention succeeds again and re-stamps ReadAt.
// A key the recipient does not own is datatypes.ErrNotFound.
func (e *Engine) MarkRead(ctx context.Context, recipient, key string) (*datatypes.Mention, error) {
	return e.mentions.Update(ctx, recipient, key, func(m *datatypes.Mention) error {
		now := e.now().UTC()
		m.Status = datatypes.MentionRead
		m.ReadAt = &now
		return nil
	})
}
