package redis

import (
	"context"
	"fmt"

	"github.com/nordicfin/relion-bridge/internal/mapping"
)

// CachedLookups decorates the three D365 mapping lookups with the cache.
// Cache failures degrade to the underlying lookup so the decorator is
// observationally identical to the raw client, only faster.
type CachedLookups struct {
	cache     *Cache
	accounts  mapping.AccountMappingLookup
	taxGroups mapping.TaxGroupLookup
	itemTax   mapping.ItemTaxGroupLookup
}

// NewCachedLookups wraps the underlying lookups with the cache
func NewCachedLookups(
	cache *Cache,
	accounts mapping.AccountMappingLookup,
	taxGroups mapping.TaxGroupLookup,
	itemTax mapping.ItemTaxGroupLookup,
) *CachedLookups {
	return &CachedLookups{
		cache:     cache,
		accounts:  accounts,
		taxGroups: taxGroups,
		itemTax:   itemTax,
	}
}

// LookupAccountMapping implements mapping.AccountMappingLookup
func (l *CachedLookups) LookupAccountMapping(ctx context.Context, accountNo, ifrsTag string) (*mapping.AccountMapping, bool, error) {
	key := fmt.Sprintf("account:%s:%s", accountNo, ifrsTag)

	var cached mapping.AccountMapping
	if hit, absent, err := l.cache.Get(ctx, key, &cached); err == nil && hit {
		if absent {
			return nil, false, nil
		}
		return &cached, true, nil
	}

	rec, found, err := l.accounts.LookupAccountMapping(ctx, accountNo, ifrsTag)
	if err != nil {
		return nil, false, err
	}
	l.store(ctx, key, rec, found)
	return rec, found, nil
}

// LookupTaxGroup implements mapping.TaxGroupLookup
func (l *CachedLookups) LookupTaxGroup(ctx context.Context, bookingType mapping.BookingType, postingGroup string) (*mapping.TaxGroupMapping, bool, error) {
	key := fmt.Sprintf("taxgroup:%s:%s", bookingType, postingGroup)

	var cached mapping.TaxGroupMapping
	if hit, absent, err := l.cache.Get(ctx, key, &cached); err == nil && hit {
		if absent {
			return nil, false, nil
		}
		return &cached, true, nil
	}

	rec, found, err := l.taxGroups.LookupTaxGroup(ctx, bookingType, postingGroup)
	if err != nil {
		return nil, false, err
	}
	l.store(ctx, key, rec, found)
	return rec, found, nil
}

// LookupItemTaxGroup implements mapping.ItemTaxGroupLookup
func (l *CachedLookups) LookupItemTaxGroup(ctx context.Context, vatBusGroup, vatProdGroup string) (*mapping.ItemTaxGroupMapping, bool, error) {
	key := fmt.Sprintf("itemtax:%s:%s", vatBusGroup, vatProdGroup)

	var cached mapping.ItemTaxGroupMapping
	if hit, absent, err := l.cache.Get(ctx, key, &cached); err == nil && hit {
		if absent {
			return nil, false, nil
		}
		return &cached, true, nil
	}

	rec, found, err := l.itemTax.LookupItemTaxGroup(ctx, vatBusGroup, vatProdGroup)
	if err != nil {
		return nil, false, err
	}
	l.store(ctx, key, rec, found)
	return rec, found, nil
}

// store writes a lookup outcome back to the cache; write failures are already
// logged by the cache and do not affect the lookup result.
func (l *CachedLookups) store(ctx context.Context, key string, rec interface{}, found bool) {
	if !found {
		_ = l.cache.SetAbsent(ctx, key)
		return
	}
	_ = l.cache.Set(ctx, key, rec)
}
