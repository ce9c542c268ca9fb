package querycache

import (
	"sort"
	"strconv"
)

// EntityType names the kind of entity a tag refers to.
type EntityType string

// Tag labels what an entry depends on. A tag carries either an entity id, a
// bucket marker such as "LIST" or "HOUSEHOLD_7", or neither, in which case it
// stands for every entry of its type.
type Tag struct {
	Type   EntityType
	ID     int64
	Bucket string
}

// TypeTag matches every entry tagged with typ.
func TypeTag(typ EntityType) Tag { return Tag{Type: typ} }

// EntityTag is the tag for a single entity.
func EntityTag(typ EntityType, id int64) Tag { return Tag{Type: typ, ID: id} }

// BucketTag is the tag for a collection marker.
func BucketTag(typ EntityType, marker string) Tag { return Tag{Type: typ, Bucket: marker} }

// ListTag is the "LIST" collection tag.
func ListTag(typ EntityType) Tag { return BucketTag(typ, "LIST") }

// HouseholdTag is the "HOUSEHOLD_<id>" collection tag.
func HouseholdTag(typ EntityType, householdID int64) Tag {
	return BucketTag(typ, "HOUSEHOLD_"+strconv.FormatInt(householdID, 10))
}

// UserTag is the "USER_<id>" collection tag.
func UserTag(typ EntityType, userID int64) Tag {
	return BucketTag(typ, "USER_"+strconv.FormatInt(userID, 10))
}

// TypeOnly reports whether t matches a whole type.
func (t Tag) TypeOnly() bool { return t.ID == 0 && t.Bucket == "" }

func (t Tag) String() string {
	switch {
	case t.Bucket != "":
		return string(t.Type) + ":" + t.Bucket
	case t.ID != 0:
		return string(t.Type) + ":" + strconv.FormatInt(t.ID, 10)
	default:
		return string(t.Type)
	}
}

// tagIndex is the many-to-many relation between tags and entry keys.
// Callers hold Store.mu.
type tagIndex struct {
	byTag map[Tag]map[Key]struct{}
	byKey map[Key][]Tag
}

func newTagIndex() *tagIndex {
	return &tagIndex{
		byTag: make(map[Tag]map[Key]struct{}),
		byKey: make(map[Key][]Tag),
	}
}

// provide replaces the tag set of key.
func (ix *tagIndex) provide(key Key, tags []Tag) {
	ix.drop(key)
	if len(tags) == 0 {
		return
	}
	seen := make(map[Tag]struct{}, len(tags))
	kept := make([]Tag, 0, len(tags))
	for _, t := range tags {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		kept = append(kept, t)
		keys := ix.byTag[t]
		if keys == nil {
			keys = make(map[Key]struct{})
			ix.byTag[t] = keys
		}
		keys[key] = struct{}{}
	}
	ix.byKey[key] = kept
}

func (ix *tagIndex) drop(key Key) {
	for _, t := range ix.byKey[key] {
		keys := ix.byTag[t]
		delete(keys, key)
		if len(keys) == 0 {
			delete(ix.byTag, t)
		}
	}
	delete(ix.byKey, key)
}

func (ix *tagIndex) tagsOf(key Key) []Tag {
	return append([]Tag(nil), ix.byKey[key]...)
}

// match returns the keys carrying any of tags, sorted for stable refetch order.
func (ix *tagIndex) match(tags []Tag) []Key {
	hit := make(map[Key]struct{})
	for _, t := range tags {
		if t.TypeOnly() {
			for have, keys := range ix.byTag {
				if have.Type != t.Type {
					continue
				}
				for k := range keys {
					hit[k] = struct{}{}
				}
			}
			continue
		}
		for k := range ix.byTag[t] {
			hit[k] = struct{}{}
		}
	}
	out := make([]Key, 0, len(hit))
	for k := range hit {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}
