package logging

import (
	"context"
	"fmt"
	"time"

	"github.com/ahmetcoskunkizilkaya/account-backend/internal/models"
	"gorm.io/gorm"
)

// PurgeBefore deletes system_logs older than cutoff.
func PurgeBefore(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error) {
	result := db.WithContext(ctx).Where("timestamp < ?", cutoff).Delete(&models.SystemLog{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to purge system logs: %w", result.Error)
	}
	return result.RowsAffected, nil
}
