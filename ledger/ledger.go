// Package ledger keeps a small double-entry style ledger inside the JSON
// document produced by the Root schema.
package ledger

import (
	"errors"
	"fmt"
	"math"

	"github.com/gosuda/vbjson/jsonv"
)

var ErrNotLedger = errors.New("ledger root is not an object")

const (
	DefaultAssetCode   = "CUR"
	DefaultAccountCode = "UNSPEC"
	DefaultPeriod      = "0000-00"
)

var tables = []string{"accounts", "assetTypes", "batches", "journals", "postings"}

var counters = []string{"nextAccountId", "nextAssetTypeId", "nextBatchId", "nextJournalId", "nextPostingSeq"}

// EnsureDefaults repairs root in place so every table is an array, the
// postings text is a string and every counter is a positive integer. A
// root that is not an object is replaced by a fresh one.
func EnsureDefaults(root *jsonv.Value) *jsonv.Value {
	if root.Kind() != jsonv.Object {
		root = jsonv.NewObject()
	}
	ledger := objectAt(root, "ledger")
	for _, key := range tables {
		if v, ok := ledger.Get(key); !ok || v.Kind() != jsonv.Array {
			ledger.Put(key, jsonv.NewArray())
		}
	}
	if v, ok := ledger.Get("postingsText"); !ok || v.Kind() != jsonv.String {
		ledger.Put("postingsText", jsonv.NewString(""))
	}

	meta := objectAt(root, "meta")
	for _, key := range counters {
		v, ok := meta.Get(key)
		if !ok || v.Kind() != jsonv.Number || v.Number() < 1 || v.Number() != math.Trunc(v.Number()) {
			meta.Put(key, jsonv.NewNumber(1))
		}
	}
	return root
}

func objectAt(parent *jsonv.Value, key string) *jsonv.Value {
	if v, ok := parent.Get(key); ok && v.Kind() == jsonv.Object {
		return v
	}
	v := jsonv.NewObject()
	parent.Put(key, v)
	return v
}

type book struct {
	ledger *jsonv.Value
	meta   *jsonv.Value
}

func open(root *jsonv.Value) (book, error) {
	if root.Kind() != jsonv.Object {
		return book{}, ErrNotLedger
	}
	EnsureDefaults(root)
	l, _ := root.Get("ledger")
	m, _ := root.Get("meta")
	return book{ledger: l, meta: m}, nil
}

func (b book) table(name string) *jsonv.Value {
	v, _ := b.ledger.Get(name)
	return v
}

// next returns the current value of a counter and advances it.
func (b book) next(counter string) int {
	v, _ := b.meta.Get(counter)
	n := int(v.Number())
	b.meta.Put(counter, jsonv.NewNumber(float64(n+1)))
	return n
}

func findByCode(table *jsonv.Value, code string) *jsonv.Value {
	for _, item := range table.Items() {
		if c, ok := item.Get("code"); ok && c.Kind() == jsonv.String && c.Str() == code {
			return item
		}
	}
	return nil
}

func idOf(v *jsonv.Value) int {
	id, _ := v.Get("id")
	return int(id.Number())
}

// AssetType finds the asset type with code or creates it. The returned
// object is part of root.
func AssetType(root *jsonv.Value, code, description string) (*jsonv.Value, error) {
	b, err := open(root)
	if err != nil {
		return nil, err
	}
	return b.assetType(code, description), nil
}

func (b book) assetType(code, description string) *jsonv.Value {
	if code == "" {
		code = DefaultAssetCode
	}
	types := b.table("assetTypes")
	if existing := findByCode(types, code); existing != nil {
		return existing
	}
	if description == "" {
		description = code
	}
	obj := jsonv.NewObject()
	obj.Put("id", jsonv.NewNumber(float64(b.next("nextAssetTypeId"))))
	obj.Put("code", jsonv.NewString(code))
	obj.Put("description", jsonv.NewString(description))
	types.Append(obj)
	return obj
}

// Account finds the account with code or creates it along with its asset
// type.
func Account(root *jsonv.Value, code, name, accountType, assetCode string) (*jsonv.Value, error) {
	b, err := open(root)
	if err != nil {
		return nil, err
	}
	return b.account(code, name, accountType, assetCode), nil
}

func (b book) account(code, name, accountType, assetCode string) *jsonv.Value {
	if code == "" {
		code = DefaultAccountCode
	}
	accounts := b.table("accounts")
	if existing := findByCode(accounts, code); existing != nil {
		return existing
	}
	at := b.assetType(assetCode, "")
	if name == "" {
		name = code
	}
	if accountType == "" {
		accountType = "generic"
	}
	obj := jsonv.NewObject()
	obj.Put("id", jsonv.NewNumber(float64(b.next("nextAccountId"))))
	obj.Put("code", jsonv.NewString(code))
	obj.Put("name", jsonv.NewString(name))
	obj.Put("type", jsonv.NewString(accountType))
	obj.Put("assetTypeId", jsonv.NewNumber(float64(idOf(at))))
	accounts.Append(obj)
	return obj
}

// PeriodOf returns the YYYY-MM prefix of an ISO date, or DefaultPeriod.
func PeriodOf(date string) string {
	if len(date) >= 8 && date[4] == '-' && date[7] == '-' {
		return date[:7]
	}
	return DefaultPeriod
}

// CreateJournal appends a journal and returns its id. A zero batchID
// leaves the journal unbatched.
func CreateJournal(root *jsonv.Value, date, description, period string, batchID int) (int, error) {
	b, err := open(root)
	if err != nil {
		return 0, err
	}
	if period == "" {
		period = PeriodOf(date)
	}
	id := b.next("nextJournalId")
	obj := jsonv.NewObject()
	obj.Put("id", jsonv.NewNumber(float64(id)))
	obj.Put("date", jsonv.NewString(date))
	obj.Put("description", jsonv.NewString(description))
	obj.Put("period", jsonv.NewString(period))
	if batchID > 0 {
		obj.Put("batchId", jsonv.NewNumber(float64(batchID)))
	}
	b.table("journals").Append(obj)
	return id, nil
}

// PostEntry appends a posting against journalID and returns its sequence
// number. The account and asset type are created when missing.
func PostEntry(root *jsonv.Value, accountCode, assetCode, period string, journalID int, amount float64, memo string) (int, error) {
	b, err := open(root)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0, fmt.Errorf("post entry: amount %v is not finite", amount)
	}
	acct := b.account(accountCode, "", "", assetCode)
	at := b.assetType(assetCode, "")
	if period == "" {
		period = DefaultPeriod
	}
	seq := b.next("nextPostingSeq")
	obj := jsonv.NewObject()
	obj.Put("id", jsonv.NewNumber(float64(seq)))
	obj.Put("journalId", jsonv.NewNumber(float64(journalID)))
	obj.Put("accountId", jsonv.NewNumber(float64(idOf(acct))))
	obj.Put("assetTypeId", jsonv.NewNumber(float64(idOf(at))))
	obj.Put("period", jsonv.NewString(period))
	obj.Put("amount", jsonv.NewNumber(amount))
	if memo != "" {
		obj.Put("memo", jsonv.NewString(memo))
	}
	b.table("postings").Append(obj)
	return seq, nil
}

// Balance sums the postings of an account, optionally limited to a period.
func Balance(root *jsonv.Value, accountCode, period string) (float64, error) {
	b, err := open(root)
	if err != nil {
		return 0, err
	}
	acct := findByCode(b.table("accounts"), accountCode)
	if acct == nil {
		return 0, nil
	}
	id := idOf(acct)
	var total float64
	for _, p := range b.table("postings").Items() {
		if a, _ := p.Get("accountId"); int(a.Number()) != id {
			continue
		}
		if period != "" {
			if per, _ := p.Get("period"); per.Str() != period {
				continue
			}
		}
		amt, _ := p.Get("amount")
		total += amt.Number()
	}
	return total, nil
}
