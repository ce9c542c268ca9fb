package household

import (
	"bytes"
	"fmt"

	json "github.com/goccy/go-json"
)

// Field is a tri-state value for sparse updates: unset (leave alone), a
// value, or an explicit null (clear). The zero Field is unset.
type Field[T any] struct {
	set   bool
	null  bool
	value T
}

// Set returns a Field carrying v.
func Set[T any](v T) Field[T] {
	return Field[T]{set: true, value: v}
}

// Null returns a Field that clears the target.
func Null[T any]() Field[T] {
	return Field[T]{set: true, null: true}
}

// IsSet reports whether the field was provided at all.
func (f Field[T]) IsSet() bool { return f.set }

// IsNull reports whether the field explicitly clears the target.
func (f Field[T]) IsNull() bool { return f.set && f.null }

// Value returns the carried value; ok is false when unset or null.
func (f Field[T]) Value() (T, bool) {
	if !f.set || f.null {
		var zero T
		return zero, false
	}
	return f.value, true
}

func (f Field[T]) wire() any {
	if f.null {
		return nil
	}
	return f.value
}

// applyToPtr merges f into a nullable destination.
func (f Field[T]) applyToPtr(dst **T) {
	if !f.set {
		return
	}
	if f.null {
		*dst = nil
		return
	}
	v := f.value
	*dst = &v
}

// applyTo merges f into a non-nullable destination; null resets it to zero.
func (f Field[T]) applyTo(dst *T) {
	if !f.set {
		return
	}
	if f.null {
		var zero T
		*dst = zero
		return
	}
	*dst = f.value
}

func decodeField[T any](raw map[string]json.RawMessage, key string) (Field[T], error) {
	msg, ok := raw[key]
	if !ok {
		return Field[T]{}, nil
	}
	if bytes.Equal(bytes.TrimSpace(msg), []byte("null")) {
		return Null[T](), nil
	}
	var v T
	if err := json.Unmarshal(msg, &v); err != nil {
		return Field[T]{}, fmt.Errorf("field %q: %w", key, err)
	}
	return Set(v), nil
}

func putField[T any](out map[string]any, key string, f Field[T]) {
	if f.set {
		out[key] = f.wire()
	}
}

// TodoPatch is a sparse update for a todo. Only set fields are sent and merged.
type TodoPatch struct {
	Title        Field[string]
	Description  Field[string]
	Status       Field[TodoStatus]
	Priority     Field[Priority]
	DueDate      Field[string]
	AssignedToID Field[int64]
	Notes        Field[string]
}

// Empty reports whether no field is set.
func (p TodoPatch) Empty() bool {
	return !p.Title.set && !p.Description.set && !p.Status.set && !p.Priority.set &&
		!p.DueDate.set && !p.AssignedToID.set && !p.Notes.set
}

// ApplyTo merges the patch into t. Unset fields are left untouched and null
// fields are cleared.
func (p TodoPatch) ApplyTo(t *Todo) {
	if t == nil {
		return
	}
	p.Title.applyTo(&t.Title)
	p.Description.applyToPtr(&t.Description)
	p.Status.applyTo(&t.Status)
	p.Priority.applyTo(&t.Priority)
	p.DueDate.applyToPtr(&t.DueDate)
	p.AssignedToID.applyToPtr(&t.AssignedToID)
	p.Notes.applyToPtr(&t.Notes)
}

// MarshalJSON emits only the set fields.
func (p TodoPatch) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, 7)
	putField(out, "title", p.Title)
	putField(out, "description", p.Description)
	putField(out, "status", p.Status)
	putField(out, "priority", p.Priority)
	putField(out, "dueDate", p.DueDate)
	putField(out, "assignedToId", p.AssignedToID)
	putField(out, "notes", p.Notes)
	return json.Marshal(out)
}

// UnmarshalJSON distinguishes omitted keys from explicit nulls.
func (p *TodoPatch) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var err error
	if p.Title, err = decodeField[string](raw, "title"); err != nil {
		return err
	}
	if p.Description, err = decodeField[string](raw, "description"); err != nil {
		return err
	}
	if p.Status, err = decodeField[TodoStatus](raw, "status"); err != nil {
		return err
	}
	if p.Priority, err = decodeField[Priority](raw, "priority"); err != nil {
		return err
	}
	if p.DueDate, err = decodeField[string](raw, "dueDate"); err != nil {
		return err
	}
	if p.AssignedToID, err = decodeField[int64](raw, "assignedToId"); err != nil {
		return err
	}
	p.Notes, err = decodeField[string](raw, "notes")
	return err
}

// ShoppingItemPatch is a sparse update for a shopping item.
type ShoppingItemPatch struct {
	Name      Field[string]
	Quantity  Field[int]
	Purchased Field[bool]
	Category  Field[string]
	Notes     Field[string]
}

// ApplyTo merges the patch into it.
func (p ShoppingItemPatch) ApplyTo(it *ShoppingItem) {
	if it == nil {
		return
	}
	p.Name.applyTo(&it.Name)
	p.Quantity.applyTo(&it.Quantity)
	p.Purchased.applyTo(&it.Purchased)
	p.Category.applyToPtr(&it.Category)
	p.Notes.applyToPtr(&it.Notes)
}

// MarshalJSON emits only the set fields.
func (p ShoppingItemPatch) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, 5)
	putField(out, "name", p.Name)
	putField(out, "quantity", p.Quantity)
	putField(out, "purchased", p.Purchased)
	putField(out, "category", p.Category)
	putField(out, "notes", p.Notes)
	return json.Marshal(out)
}

// AnnouncementPatch is a sparse update for an announcement.
type AnnouncementPatch struct {
	Text        Field[string]
	IsPinned    Field[bool]
	PublishedAt Field[string]
	ExpiresAt   Field[string]
}

// ApplyTo merges the patch into a.
func (p AnnouncementPatch) ApplyTo(a *Announcement) {
	if a == nil {
		return
	}
	p.Text.applyTo(&a.Text)
	p.IsPinned.applyTo(&a.IsPinned)
	p.PublishedAt.applyToPtr(&a.PublishedAt)
	p.ExpiresAt.applyToPtr(&a.ExpiresAt)
}

// MarshalJSON emits only the set fields.
func (p AnnouncementPatch) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, 4)
	putField(out, "text", p.Text)
	putField(out, "isPinned", p.IsPinned)
	putField(out, "publishedAt", p.PublishedAt)
	putField(out, "expiresAt", p.ExpiresAt)
	return json.Marshal(out)
}

// UnmarshalJSON distinguishes omitted keys from explicit nulls.
func (p *AnnouncementPatch) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var err error
	if p.Text, err = decodeField[string](raw, "text"); err != nil {
		return err
	}
	if p.IsPinned, err = decodeField[bool](raw, "isPinned"); err != nil {
		return err
	}
	if p.PublishedAt, err = decodeField[string](raw, "publishedAt"); err != nil {
		return err
	}
	p.ExpiresAt, err = decodeField[string](raw, "expiresAt")
	return err
}

// UserDetailsPatch is a sparse update of a user's profile. The backend keys
// this body in snake case.
type UserDetailsPatch struct {
	DisplayName Field[string]
	Tagline     Field[string]
	Mood        Field[MoodKey]
}

// Empty reports whether no field is set.
func (p UserDetailsPatch) Empty() bool {
	return !p.DisplayName.set && !p.Tagline.set && !p.Mood.set
}

// ApplyTo merges the profile fields into u. Mood lives outside the user row.
func (p UserDetailsPatch) ApplyTo(u *User) {
	if u == nil {
		return
	}
	p.DisplayName.applyTo(&u.DisplayName)
	p.Tagline.applyToPtr(&u.Tagline)
}

// MarshalJSON emits only the set fields.
func (p UserDetailsPatch) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, 3)
	putField(out, "display_name", p.DisplayName)
	putField(out, "tagline", p.Tagline)
	putField(out, "mood", p.Mood)
	return json.Marshal(out)
}

// UnmarshalJSON distinguishes omitted keys from explicit nulls.
func (p *UserDetailsPatch) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var err error
	if p.DisplayName, err = decodeField[string](raw, "display_name"); err != nil {
		return err
	}
	if p.Tagline, err = decodeField[string](raw, "tagline"); err != nil {
		return err
	}
	p.Mood, err = decodeField[MoodKey](raw, "mood")
	return err
}
