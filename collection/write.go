package collection

import (
	"context"
	"strconv"

	"github.com/paulmach/orb"

	"github.com/antflydb/antfly/antflyerr"
	"github.com/antflydb/antfly/docid"
	"github.com/antflydb/antfly/kv"
	"github.com/antflydb/antfly/number"
	"github.com/antflydb/antfly/schema"
	"github.com/antflydb/antfly/tokenizer"
)

// Add upserts a document under id (auto-generated when empty), coercing
// every schema field per mode and indexing it, with rollback of every
// already-applied field on the first failure (§4.1). Re-adding an
// existing id replaces its prior indexing entirely before the new values
// are applied.
func (c *Collection) Add(ctx context.Context, id string, doc map[string]any, mode schema.Mode) (seq uint64, assignedID string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	assignedID = docid.Generate(id)
	existingSeq, exists, err := c.ids.Seq(ctx, assignedID)
	if err != nil {
		return 0, "", err
	}

	if exists {
		seq = existingSeq
		if old, ok := c.docs[uint32(seq)]; ok {
			c.removeIndexing(ctx, uint32(seq), old)
		}
	} else {
		seq = c.nextSeq
	}

	var undo []func()
	rollback := func() {
		for i := len(undo) - 1; i >= 0; i-- {
			undo[i]()
		}
	}

	coerced := make(map[string]any)
	for _, f := range c.sch.Fields {
		if f.Name == schema.WildcardFieldName {
			continue
		}
		raw, present := doc[f.Name]
		if !present {
			continue
		}
		converted, ok, cerr := schema.Coerce(f.Kind, mode, raw)
		if cerr != nil {
			rollback()
			return 0, "", cerr
		}
		if !ok {
			continue
		}
		if err := c.indexField(ctx, f, uint32(seq), converted, &undo); err != nil {
			rollback()
			return 0, "", err
		}
		coerced[f.Name] = converted
	}

	if c.sch.WildcardField != nil {
		for k, raw := range doc {
			if k == schema.WildcardFieldName {
				continue
			}
			if _, known := c.sch.Field(k); known {
				continue
			}
			kind, ierr := schema.InferKind(raw)
			if ierr != nil {
				continue
			}
			newField := schema.Field{Name: k, Kind: kind, Indexed: true, Faceted: true, Sortable: true, Optional: true}
			if err := c.sch.AddField(newField); err != nil {
				continue
			}
			if err := c.openFieldIndexes(ctx, newField); err != nil {
				rollback()
				return 0, "", err
			}
			if err := persistSchema(ctx, c.name, c.sch, c.store); err != nil {
				rollback()
				return 0, "", err
			}
			converted, ok, cerr := schema.Coerce(kind, schema.CoerceOrDrop, raw)
			if cerr != nil || !ok {
				continue
			}
			if err := c.indexField(ctx, newField, uint32(seq), converted, &undo); err != nil {
				rollback()
				return 0, "", err
			}
			coerced[k] = converted
		}
	}

	blob, err := encodeDoc(coerced)
	if err != nil {
		rollback()
		return 0, "", err
	}
	if err := c.store.Put(ctx, kv.DocKey(c.name, seq), blob); err != nil {
		rollback()
		return 0, "", antflyerr.Wrap(err, antflyerr.BackendFailure, "persist document %s/%d", c.name, seq)
	}
	if err := c.ids.Bind(ctx, assignedID, seq); err != nil {
		rollback()
		return 0, "", err
	}

	canonical, err := decodeDoc(blob)
	if err != nil {
		rollback()
		return 0, "", err
	}
	c.docs[uint32(seq)] = canonical
	c.universe.Add(uint32(seq))
	if !exists {
		c.nextSeq++
	}
	c.recordDocStats()
	return seq, assignedID, nil
}

// Remove deletes id's document and every index entry it produced.
func (c *Collection) Remove(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	seq, ok, err := c.ids.Seq(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return antflyerr.New(antflyerr.NotFound, "document %q not found in %q", id, c.name)
	}

	if doc, ok := c.docs[uint32(seq)]; ok {
		c.removeIndexing(ctx, uint32(seq), doc)
	}
	if err := c.store.Delete(ctx, kv.DocKey(c.name, seq)); err != nil {
		return antflyerr.Wrap(err, antflyerr.BackendFailure, "delete document %s/%d", c.name, seq)
	}
	if err := c.ids.Unbind(ctx, id, seq); err != nil {
		return err
	}
	delete(c.docs, uint32(seq))
	c.universe.Remove(uint32(seq))
	c.recordDocStats()
	return nil
}

// indexField routes one coerced field value into its derived index,
// appending an undo closure that exactly reverses the operation.
func (c *Collection) indexField(ctx context.Context, f schema.Field, seq uint32, value any, undo *[]func()) error {
	switch f.Kind {
	case schema.KindString:
		if !f.Indexed {
			return nil
		}
		text, _ := value.(string)
		return c.indexTokens(ctx, f, seq, tokenizer.Tokenize(text, tokenizer.Options{}), undo)

	case schema.KindStringArray:
		if !f.Indexed {
			return nil
		}
		arr, _ := value.([]string)
		return c.indexTokens(ctx, f, seq, tokenizer.TokenizeArray(arr, tokenizer.Options{}), undo)

	case schema.KindBool:
		if !f.Indexed {
			return nil
		}
		b, _ := value.(bool)
		text := strconv.FormatBool(b)
		return c.indexTokens(ctx, f, seq, []tokenizer.Token{{Position: 1, Text: text}}, undo)

	case schema.KindInt32, schema.KindInt64, schema.KindFloat:
		idx, ok := c.numIdx[f.Name]
		if !ok {
			return nil
		}
		num := toIndexNumber(f.Kind, value)
		if err := idx.Insert(ctx, num, seq); err != nil {
			return err
		}
		*undo = append(*undo, func() { _ = idx.Remove(ctx, num, seq) })
		return nil

	case schema.KindGeopoint:
		idx, ok := c.geoIdx[f.Name]
		if !ok {
			return nil
		}
		pt, _ := value.([2]float64)
		if err := idx.IndexPoint(ctx, seq, pt[0], pt[1]); err != nil {
			return err
		}
		*undo = append(*undo, func() { _ = idx.RemovePoint(ctx, seq) })
		return nil

	case schema.KindGeopointArray:
		idx, ok := c.geoIdx[f.Name]
		if !ok {
			return nil
		}
		pts, _ := value.([][2]float64)
		for _, p := range pts {
			if err := idx.IndexPoint(ctx, seq, p[0], p[1]); err != nil {
				return err
			}
		}
		*undo = append(*undo, func() { _ = idx.RemovePoint(ctx, seq) })
		return nil

	case schema.KindGeopolygon:
		idx, ok := c.geoIdx[f.Name]
		if !ok {
			return nil
		}
		verts, _ := value.([][2]float64)
		pts := make([]orb.Point, len(verts))
		for i, v := range verts {
			pts[i] = orb.Point{v[1], v[0]}
		}
		if _, err := idx.IndexPolygon(ctx, seq, pts); err != nil {
			return err
		}
		*undo = append(*undo, func() { _ = idx.RemovePolygon(ctx, seq) })
		return nil
	}
	return nil
}

// indexTokens groups tok by text and appends each group's position list to
// the field's posting, registering the matching token in its dictionary.
func (c *Collection) indexTokens(ctx context.Context, f schema.Field, seq uint32, toks []tokenizer.Token, undo *[]func()) error {
	grouped := make(map[string][]uint32)
	for _, t := range toks {
		grouped[t.Text] = append(grouped[t.Text], uint32(t.Position))
	}
	dict := c.dict[f.Name]
	for text, positions := range grouped {
		if err := c.postings.Append(ctx, f.Name, text, seq, positions); err != nil {
			return err
		}
		if dict != nil {
			dict.Insert(text)
		}
		text, dict := text, dict
		*undo = append(*undo, func() {
			_ = c.postings.Remove(ctx, f.Name, text, seq)
			if dict != nil {
				dict.Remove(text)
			}
		})
	}
	return nil
}

// removeIndexing reverses every index entry doc produced for seq, using
// its canonical (post-JSON) field values since it is called both from a
// live upsert and from recovered state.
func (c *Collection) removeIndexing(ctx context.Context, seq uint32, doc map[string]any) {
	for _, f := range c.sch.Fields {
		raw, present := doc[f.Name]
		if !present {
			continue
		}
		switch f.Kind {
		case schema.KindString:
			if !f.Indexed {
				continue
			}
			if text, ok := asString(raw); ok {
				c.removeTokens(ctx, f, seq, tokenizer.Tokenize(text, tokenizer.Options{}))
			}
		case schema.KindStringArray:
			if !f.Indexed {
				continue
			}
			if arr, ok := asStringArray(raw); ok {
				c.removeTokens(ctx, f, seq, tokenizer.TokenizeArray(arr, tokenizer.Options{}))
			}
		case schema.KindBool:
			if !f.Indexed {
				continue
			}
			if b, ok := asBool(raw); ok {
				c.removeTokens(ctx, f, seq, []tokenizer.Token{{Position: 1, Text: strconv.FormatBool(b)}})
			}
		case schema.KindInt32, schema.KindInt64, schema.KindFloat:
			if idx, ok := c.numIdx[f.Name]; ok {
				if v, ok := asFloat64(raw); ok {
					_ = idx.Remove(ctx, number.Float(v), seq)
				}
			}
		case schema.KindGeopoint, schema.KindGeopointArray:
			if idx, ok := c.geoIdx[f.Name]; ok {
				_ = idx.RemovePoint(ctx, seq)
			}
		case schema.KindGeopolygon:
			if idx, ok := c.geoIdx[f.Name]; ok {
				_ = idx.RemovePolygon(ctx, seq)
			}
		}
	}
}

func (c *Collection) removeTokens(ctx context.Context, f schema.Field, seq uint32, toks []tokenizer.Token) {
	seen := make(map[string]bool)
	dict := c.dict[f.Name]
	for _, t := range toks {
		if seen[t.Text] {
			continue
		}
		seen[t.Text] = true
		_ = c.postings.Remove(ctx, f.Name, t.Text, seq)
		if dict != nil {
			dict.Remove(t.Text)
		}
	}
}

// toIndexNumber converts a coerced numeric field value to number.Number.
// Fresh coercions hand back Go-native int32/int64/float64; values reloaded
// through JSON always arrive as float64. Both collapse to the same
// comparable number.Number since Equal/Less promote across kinds anyway.
func toIndexNumber(kind schema.Kind, value any) number.Number {
	switch v := value.(type) {
	case int32:
		return number.Int(int64(v))
	case int64:
		return number.Int(v)
	case float64:
		return number.Float(v)
	default:
		return number.Float(0)
	}
}
