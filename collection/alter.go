package collection

import (
	"context"

	"github.com/antflydb/antfly/antflyerr"
	"github.com/antflydb/antfly/schema"
)

// AlterAddField implements `alter: add field` (§4.1): the field becomes
// visible to writes and queries immediately, but only documents written
// after this call populate its index. Existing documents are not
// backfilled: their stored blobs hold only the fields the schema had when
// they were written.
func (c *Collection) AlterAddField(ctx context.Context, f schema.Field) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.sch.AddField(f); err != nil {
		return err
	}
	if err := c.openFieldIndexes(ctx, f); err != nil {
		return err
	}
	c.recordDocStats()
	return persistSchema(ctx, c.name, c.sch, c.store)
}

// AlterDropField implements `alter: drop field`: the field's schema entry
// and every derived index entry it produced are removed; existing
// documents keep their stored value until next rewritten, but it stops
// being searchable, facetable, or sortable.
func (c *Collection) AlterDropField(ctx context.Context, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.sch.Field(name); !ok {
		return antflyerr.New(antflyerr.NotFound, "field %q not found", name)
	}
	c.sch.DropField(name)
	delete(c.numIdx, name)
	delete(c.geoIdx, name)
	delete(c.dict, name)
	if err := c.postings.DropField(ctx, name); err != nil {
		return err
	}
	if c.metrics != nil {
		c.metrics.TypoArenaNodes.DeleteLabelValues(c.name, name)
	}
	c.recordDocStats()
	return persistSchema(ctx, c.name, c.sch, c.store)
}
