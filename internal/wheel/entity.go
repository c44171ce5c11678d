// AngelaMos | 2026
// entity.go

package wheel

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// DefaultWeight is the weight of a segment that was not given one.
const DefaultWeight = 1.0

type Segment struct {
	Label    string  `json:"label"               validate:"required,min=1,max=100"`
	Color    string  `json:"color,omitempty"     validate:"omitempty,hexcolor"`
	Weight   float64 `json:"weight,omitempty"    validate:"omitempty,gt=0,lte=1000"`
	ImageURL string  `json:"image_url,omitempty" validate:"omitempty,url,max=2048"`
}

// HasCustomWeight reports a weight other than the default.
func (s Segment) HasCustomWeight() bool {
	return s.Weight != 0 && s.Weight != DefaultWeight
}

type Segments []Segment

func (s Segments) Value() (driver.Value, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s)
}

func (s *Segments) Scan(src any) error {
	*s = nil
	return scanJSON(src, s)
}

type Design struct {
	Background string `json:"background,omitempty" validate:"omitempty,hexcolor"`
	Pointer    string `json:"pointer,omitempty"    validate:"omitempty,hexcolor"`
	Font       string `json:"font,omitempty"       validate:"omitempty,max=64"`
	Theme      string `json:"theme,omitempty"      validate:"omitempty,max=64"`
}

func (d Design) Value() (driver.Value, error) {
	return json.Marshal(d)
}

func (d *Design) Scan(src any) error {
	*d = Design{}
	return scanJSON(src, d)
}

type Wheel struct {
	ID        string    `db:"id"`
	OwnerID   string    `db:"owner_id"`
	Title     string    `db:"title"`
	Segments  Segments  `db:"segments"`
	Design    *Design   `db:"design"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func scanJSON(src any, dst any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("scan jsonb: unsupported type %T", src)
	}

	if len(raw) == 0 {
		return errors.New("scan jsonb: empty value")
	}
	return json.Unmarshal(raw, dst)
}
