package outbox

import (
	"errors"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/catchyfabric/market-backend/pkg/db/models"
)

// maxDLQErrorLen bounds error_message in bytes.
const maxDLQErrorLen = 1024

// DLQRepository writes terminal publish failures to outbox_dlq.
type DLQRepository struct {
	db *gorm.DB
}

func NewDLQRepository(db *gorm.DB) *DLQRepository {
	return &DLQRepository{db: db}
}

// InsertTx records entry inside tx, next to the outbox row update.
func (r *DLQRepository) InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error {
	if tx == nil {
		return errors.New("dlq insert requires a transaction")
	}
	if entry.ErrorMessage != nil {
		clipped := clipUTF8(*entry.ErrorMessage, maxDLQErrorLen)
		entry.ErrorMessage = &clipped
	}
	return tx.Create(&entry).Error
}

// clipUTF8 cuts s to at most n bytes without splitting a rune.
func clipUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	s = s[:n]
	for len(s) > 0 && !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s
}
