package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/devops-ftn-2024/accommodations/domain"
)

// IdentityChangeApplier is the part of the accommodation service driven by
// identity events.
type IdentityChangeApplier interface {
	ApplyRename(ctx context.Context, change domain.UsernameChange) (int64, error)
	ApplyDeletion(ctx context.Context, ownerUsername string) (int64, error)
}

func RenameHandler(applier IdentityChangeApplier, logger *logrus.Logger) Handler {
	return func(ctx context.Context, body []byte) error {
		var change domain.UsernameChange
		if err := json.Unmarshal(body, &change); err != nil {
			return fmt.Errorf("decode username change: %w", err)
		}

		logger.WithFields(logrus.Fields{
			"old_username": change.OldUsername,
			"new_username": change.NewUsername,
		}).Info("Updating username")

		count, err := applier.ApplyRename(ctx, change)
		if err != nil {
			return err
		}
		logger.WithField("count", count).Info("Username updated on accommodations")
		return nil
	}
}

func DeletionHandler(applier IdentityChangeApplier, logger *logrus.Logger) Handler {
	return func(ctx context.Context, body []byte) error {
		var deleted domain.UserDeleted
		if err := json.Unmarshal(body, &deleted); err != nil {
			return fmt.Errorf("decode user deleted: %w", err)
		}

		logger.WithField("username", deleted.Username).Info("Deleting accommodations of removed user")

		count, err := applier.ApplyDeletion(ctx, deleted.Username)
		if err != nil {
			return err
		}
		logger.WithField("count", count).Info("Accommodations deleted")
		return nil
	}
}
