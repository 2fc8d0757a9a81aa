package engine

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/goliatone/go-formflow/pkg/model"
)

// ExistingFiles returns the previously uploaded files held by a file field.
func (e *Engine) ExistingFiles(name string) []model.FileDescriptor {
	return model.FileDescriptorsFrom(e.values[name])
}

// PendingFiles returns newly selected uploads held by a file field.
func (e *Engine) PendingFiles(name string) []model.LocalFile {
	return model.LocalFilesFrom(e.values[name])
}

// RemoveExistingFile drops the descriptor with fileID from the field's value.
// When a FileDeleter is configured and the session edits a stored submission,
// a delete request is fired in the background; its failure is only logged.
func (e *Engine) RemoveExistingFile(ctx context.Context, name, fileID string) error {
	if e.closed() {
		return ErrSessionClosed
	}
	field, ok := e.data.Field(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	if !field.Type().IsFile() {
		return fmt.Errorf("engine: field %q does not hold files", name)
	}

	existing := e.ExistingFiles(name)
	kept := make([]model.FileDescriptor, 0, len(existing))
	removed := false
	for _, descriptor := range existing {
		if descriptor.ID == fileID {
			removed = true
			continue
		}
		kept = append(kept, descriptor)
	}
	if !removed {
		return nil
	}

	if pending := e.PendingFiles(name); len(pending) > 0 {
		mixed := make([]any, 0, len(kept)+len(pending))
		for _, descriptor := range kept {
			mixed = append(mixed, descriptor)
		}
		for _, file := range pending {
			mixed = append(mixed, file)
		}
		e.values[name] = mixed
	} else {
		e.values[name] = kept
	}
	delete(e.errors, name)

	if e.fileDeleter != nil && e.submissionID != "" {
		deleter := e.fileDeleter
		submissionID := e.submissionID
		logger := e.logger.WithFields(logrus.Fields{"field": name, "file_id": fileID})
		go func() {
			if err := deleter.DeleteFile(context.WithoutCancel(ctx), submissionID, fileID); err != nil {
				logger.WithError(err).Warn("file delete failed")
			}
		}()
	}
	return nil
}
