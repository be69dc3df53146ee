package memstore

import (
	"encoding/json"
	"strconv"
	"time"
)

// Flat map encoding of Metadata, used by stores that only carry string
// key/value pairs per document (chromem collections, remote payloads).
// Decoding is lenient: malformed values are defaulted, never rejected.

const (
	metaSchemaVersion = "schema_version"
	metaCategory      = "category"
	metaSubcategory   = "subcategory"
	metaConfidence    = "confidence"
	metaSource        = "source"
	metaRelated       = "related_entities"
	metaTags          = "tags"
	metaEntity        = "entity"
	metaFactKey       = "fact_key"
	metaValidFrom     = "valid_from"
	metaValidUntil    = "valid_until"
	metaIngestedAt    = "ingested_at"
	metaSupersedesID  = "supersedes_id"
	metaIsCurrent     = "is_current"
	metaFactType      = "fact_type"
	metaArchivesID    = "archives_id"
	metaArchiveReason = "archive_reason"
	metaCreatedAt     = "created_at"
)

// EncodeMeta flattens metadata (plus the record's creation time) into a
// string map. Zero-valued fields are omitted.
func EncodeMeta(m Metadata, createdAt time.Time) map[string]string {
	out := map[string]string{
		metaSchemaVersion: strconv.Itoa(MetadataSchemaVersion),
		metaCreatedAt:     createdAt.UTC().Format(time.RFC3339Nano),
	}
	putString := func(k, v string) {
		if v != "" {
			out[k] = v
		}
	}
	putTime := func(k string, t *time.Time) {
		if t != nil {
			out[k] = t.UTC().Format(time.RFC3339Nano)
		}
	}
	putString(metaCategory, string(m.Category))
	putString(metaSubcategory, m.Subcategory)
	putString(metaSource, m.Source)
	putString(metaEntity, m.Entity)
	putString(metaFactKey, m.FactKey)
	putString(metaSupersedesID, m.SupersedesID)
	putString(metaFactType, string(m.FactType))
	putString(metaArchivesID, m.ArchivesID)
	putString(metaArchiveReason, m.ArchiveReason)
	if m.Confidence != 0 {
		out[metaConfidence] = strconv.FormatFloat(m.Confidence, 'f', -1, 64)
	}
	if len(m.RelatedEntities) > 0 {
		if b, err := json.Marshal(m.RelatedEntities); err == nil {
			out[metaRelated] = string(b)
		}
	}
	if len(m.Tags) > 0 {
		if b, err := json.Marshal(m.Tags); err == nil {
			out[metaTags] = string(b)
		}
	}
	putTime(metaValidFrom, m.ValidFrom)
	putTime(metaValidUntil, m.ValidUntil)
	putTime(metaIngestedAt, m.IngestedAt)
	if m.IsCurrent != nil {
		out[metaIsCurrent] = strconv.FormatBool(*m.IsCurrent)
	}
	return out
}

// DecodeMeta rebuilds metadata and the creation time from a string map.
// Missing category decodes as uncategorized; unparseable numbers and
// timestamps decode as their zero values.
func DecodeMeta(raw map[string]string) (Metadata, time.Time) {
	var m Metadata
	m.SchemaVersion, _ = strconv.Atoi(raw[metaSchemaVersion])
	m.Category = NormalizeCategory(raw[metaCategory])
	m.Subcategory = raw[metaSubcategory]
	m.Source = raw[metaSource]
	m.Entity = raw[metaEntity]
	m.FactKey = raw[metaFactKey]
	m.SupersedesID = raw[metaSupersedesID]
	m.ArchivesID = raw[metaArchivesID]
	m.ArchiveReason = raw[metaArchiveReason]

	if v := raw[metaConfidence]; v != "" {
		m.Confidence, _ = strconv.ParseFloat(v, 64)
	}
	if v := raw[metaRelated]; v != "" {
		json.Unmarshal([]byte(v), &m.RelatedEntities)
	}
	if v := raw[metaTags]; v != "" {
		json.Unmarshal([]byte(v), &m.Tags)
	}
	m.ValidFrom = parseTimePtr(raw[metaValidFrom])
	m.ValidUntil = parseTimePtr(raw[metaValidUntil])
	m.IngestedAt = parseTimePtr(raw[metaIngestedAt])
	if v := raw[metaIsCurrent]; v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			m.IsCurrent = &b
		}
	}
	switch FactType(raw[metaFactType]) {
	case FactStatic:
		m.FactType = FactStatic
	case FactDynamic:
		m.FactType = FactDynamic
	}

	var createdAt time.Time
	if t := parseTimePtr(raw[metaCreatedAt]); t != nil {
		createdAt = *t
	}
	return m, createdAt
}

func parseTimePtr(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil
	}
	return &t
}
