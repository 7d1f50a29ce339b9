package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"ridepool/cms/internal/collection"
	"ridepool/cms/internal/content"
	"ridepool/cms/internal/history"
	"ridepool/cms/internal/persist"
	"ridepool/cms/internal/store"
)

// singleton is one configuration document stored at collection/id and
// replaced wholesale on save.
type singleton[T any] struct {
	name       string
	collection string
	id         string
	defaults   func() T
	decode     func(json.RawMessage) (T, error)
	validate   func(T) (T, error)
	store      persist.DocumentStore
	history    *history.Service
	log        *zap.Logger
}

func (d *singleton[T]) Path() string {
	return d.collection + "/" + d.id
}

// Load merges the stored document over the defaults. A missing document is
// not an error; a store failure returns the defaults together with the error.
func (d *singleton[T]) Load(ctx context.Context) (T, error) {
	doc, err := d.store.GetDocument(ctx, d.collection, d.id)
	if errors.Is(err, store.ErrNotFound) {
		return d.defaults(), nil
	}
	if err != nil {
		d.log.Warn("load failed, serving defaults", zap.String("document", d.Path()), zap.Error(err))
		return d.defaults(), err
	}
	merged, err := content.MergeWithDefaults(doc.Data, d.defaults())
	if err != nil {
		d.log.Warn("stored document unreadable, serving defaults", zap.String("document", d.Path()), zap.Error(err))
		return d.defaults(), err
	}
	return merged, nil
}

func (d *singleton[T]) Save(ctx context.Context, raw json.RawMessage, actor string) (T, error) {
	var zero T
	value, err := d.decode(raw)
	if err != nil {
		return zero, err
	}
	if d.validate != nil {
		if value, err = d.validate(value); err != nil {
			return zero, err
		}
	}
	data, value, err := stampSchema(value)
	if err != nil {
		return zero, err
	}
	if err := d.store.PutDocument(ctx, d.collection, d.id, data); err != nil {
		return zero, fmt.Errorf("save %s: %w", d.name, err)
	}
	if d.history != nil {
		if _, err := d.history.Record(d.Path(), data, actor, "update "+d.name); err != nil && !errors.Is(err, history.ErrUnchanged) {
			d.log.Warn("record history", zap.String("document", d.Path()), zap.Error(err))
		}
	}
	return value, nil
}

func decodeDocument[T any](raw json.RawMessage) (T, error) {
	var value T
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil || probe == nil {
		return value, &content.ValidationError{Field: "body", Reason: "body must be a JSON object"}
	}
	if err := json.Unmarshal(raw, &value); err != nil {
		return value, &content.ValidationError{Field: "body", Reason: err.Error()}
	}
	return value, nil
}

// stampSchema writes the current schemaVersion into the document.
func stampSchema[T any](value T) (json.RawMessage, T, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, value, fmt.Errorf("encode document: %w", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, value, fmt.Errorf("encode document: %w", err)
	}
	fields["schemaVersion"] = content.SchemaVersion
	data, err := json.Marshal(fields)
	if err != nil {
		return nil, value, fmt.Errorf("encode document: %w", err)
	}
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, value, fmt.Errorf("encode document: %w", err)
	}
	return data, out, nil
}

func validateSettings(v content.SiteSettings) (content.SiteSettings, error) {
	return v, v.Validate()
}

func validateImages(v content.ImageConfig) (content.ImageConfig, error) {
	return v, v.Validate()
}

func validateSafety(v content.SafetyContent) (content.SafetyContent, error) {
	if err := v.Validate(); err != nil {
		return v, err
	}
	sections, err := collection.FromSequence(v.Sections)
	if err != nil {
		return v, err
	}
	v.Sections = orEmpty(sections.Items())
	return v, nil
}

func validateLegal(v content.LegalPage) (content.LegalPage, error) {
	if err := v.Validate(); err != nil {
		return v, err
	}
	sections, err := collection.FromSequence(v.Sections)
	if err != nil {
		return v, err
	}
	v.Sections = orEmpty(sections.Items())
	return v, nil
}
