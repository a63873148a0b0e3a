package cats

import (
	"time"

	"github.com/google/uuid"
)

// Cat is a row of the cats table.
type Cat struct {
	ID        uuid.UUID `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	Age       int       `gorm:"not null" json:"age"`
	Breed     string    `gorm:"size:100;not null" json:"breed"`
	CreatedAt time.Time `json:"createdAt"`
}

type CreateCatRequest struct {
	Name  string `json:"name"`
	Age   int    `json:"age"`
	Breed string `json:"breed"`
}
