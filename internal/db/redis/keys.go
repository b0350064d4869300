package redis

import "strings"

const mappingSegment = "__mapping"

// DocKey returns the hash key of a document.
func DocKey(index, typ, id string) string {
	return index + ":" + typ + ":" + id
}

// DocPrefix returns the key prefix shared by every document of an index.
func DocPrefix(index string) string {
	return index + ":"
}

// MappingKey returns the key holding a type's mapping JSON.
func MappingKey(index, typ string) string {
	return index + ":" + mappingSegment + ":" + typ
}

// ParseDocKey splits a document key into type and id.
func ParseDocKey(index, key string) (typ, id string, ok bool) {
	rest, found := strings.CutPrefix(key, DocPrefix(index))
	if !found {
		return "", "", false
	}
	typ, id, ok = strings.Cut(rest, ":")
	if !ok || typ == "" || id == "" || typ == mappingSegment {
		return "", "", false
	}
	return typ, id, true
}
