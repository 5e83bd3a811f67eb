package ledger

import (
	"errors"
	"testing"

	"github.com/gosuda/vbjson/jsonv"
	"github.com/gosuda/vbjson/parser"
	vbruntime "github.com/gosuda/vbjson/runtime"
	"github.com/gosuda/vbjson/schema"
)

func TestEnsureDefaultsRepairsRoot(t *testing.T) {
	root := jsonv.MustParse(`{"ledger":{"accounts":{},"postingsText":3},"meta":{"nextJournalId":7,"nextPostingSeq":0,"nextBatchId":1.5}}`)
	root = EnsureDefaults(root)
	want := `{"ledger":{"accounts":[],"postingsText":"","assetTypes":[],"batches":[],"journals":[],"postings":[]},"meta":{"nextJournalId":7,"nextPostingSeq":1,"nextBatchId":1,"nextAccountId":1,"nextAssetTypeId":1}}`
	if got := root.String(); got != want {
		t.Fatalf("unexpected repaired root:\n got %s\nwant %s", got, want)
	}

	if got := EnsureDefaults(jsonv.NewString("junk")); got.Kind() != jsonv.Object || !jsonv.Has(got, "meta.nextPostingSeq") {
		t.Fatalf("non-object root should be replaced, got %s", got)
	}
}

func TestRootTemplateNeedsNoRepair(t *testing.T) {
	root, err := schema.Builtin().Instantiate("Root")
	if err != nil {
		t.Fatalf("instantiate failed: %v", err)
	}
	before := root.Clone()
	if !EnsureDefaults(root).Equal(before) {
		t.Fatalf("template changed: %s", root)
	}
}

func TestAccountsAndAssetTypes(t *testing.T) {
	root := EnsureDefaults(jsonv.NewNull())

	acct, err := Account(root, "CASH", "Cash on hand", "asset", "EUR")
	if err != nil {
		t.Fatalf("account failed: %v", err)
	}
	if got := acct.String(); got != `{"id":1,"code":"CASH","name":"Cash on hand","type":"asset","assetTypeId":1}` {
		t.Fatalf("unexpected account: %s", got)
	}
	again, _ := Account(root, "CASH", "ignored", "", "")
	if again != acct {
		t.Fatalf("existing account should be returned")
	}
	anon, _ := Account(root, "", "", "", "")
	if got := anon.String(); got != `{"id":2,"code":"UNSPEC","name":"UNSPEC","type":"generic","assetTypeId":2}` {
		t.Fatalf("unexpected default account: %s", got)
	}
	cur, _ := AssetType(root, "", "")
	if got := cur.String(); got != `{"id":2,"code":"CUR","description":"CUR"}` {
		t.Fatalf("unexpected default asset type: %s", got)
	}
	meta, _ := jsonv.Get(root, "meta")
	if got := meta.String(); got != `{"nextAccountId":3,"nextAssetTypeId":3,"nextBatchId":1,"nextJournalId":1,"nextPostingSeq":1}` {
		t.Fatalf("unexpected counters: %s", got)
	}

	if _, err := Account(jsonv.NewArray(), "X", "", "", ""); !errors.Is(err, ErrNotLedger) {
		t.Fatalf("expected ErrNotLedger, got %v", err)
	}
}

func TestJournalsAndPostings(t *testing.T) {
	root := EnsureDefaults(jsonv.NewObject())

	id, err := CreateJournal(root, "2024-03-15", "Rent", "", 0)
	if err != nil || id != 1 {
		t.Fatalf("unexpected journal %d %v", id, err)
	}
	id2, _ := CreateJournal(root, "15/03/2024", "Odd date", "", 4)
	journals, _ := jsonv.Get(root, "ledger.journals")
	want := `[{"id":1,"date":"2024-03-15","description":"Rent","period":"2024-03"},{"id":2,"date":"15/03/2024","description":"Odd date","period":"0000-00","batchId":4}]`
	if id2 != 2 || journals.String() != want {
		t.Fatalf("unexpected journals: %s", journals)
	}

	seq, err := PostEntry(root, "CASH", "EUR", "2024-03", id, -500, "rent")
	if err != nil || seq != 1 {
		t.Fatalf("unexpected posting %d %v", seq, err)
	}
	if _, err := PostEntry(root, "CASH", "EUR", "2024-04", id, 120.5, ""); err != nil {
		t.Fatalf("post failed: %v", err)
	}
	postings, _ := jsonv.Get(root, "ledger.postings")
	if got := postings.Len(); got != 2 {
		t.Fatalf("expected 2 postings, got %d", got)
	}
	first, _ := jsonv.Get(root, "ledger.postings[0]")
	if got := first.String(); got != `{"id":1,"journalId":1,"accountId":1,"assetTypeId":1,"period":"2024-03","amount":-500,"memo":"rent"}` {
		t.Fatalf("unexpected posting: %s", got)
	}

	total, _ := Balance(root, "CASH", "")
	march, _ := Balance(root, "CASH", "2024-03")
	none, _ := Balance(root, "NOPE", "")
	if total != -379.5 || march != -500 || none != 0 {
		t.Fatalf("unexpected balances %v %v %v", total, march, none)
	}
}

func TestPeriodOf(t *testing.T) {
	cases := map[string]string{
		"2024-03-15": "2024-03",
		"2024-03-1":  "2024-03",
		"2024-03":    DefaultPeriod,
		"":           DefaultPeriod,
		"20240315":   DefaultPeriod,
	}
	for in, want := range cases {
		if got := PeriodOf(in); got != want {
			t.Fatalf("PeriodOf(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestHostBindings(t *testing.T) {
	prog, err := parser.ParseSource(`
AppData = JsonNew("Root")

Sub Book
    id = NewJournal("2024-05-02", "Groceries")
    seq = PostEntry("CASH", "EUR", "", id, -42.5, "food")
    PostEntry "BANK", "EUR", "2024-05", id, "42.5"
    cash = Balance("CASH")
End Sub

Sub BadAmount
    PostEntry "CASH", "EUR", "", 1, "lots"
End Sub
`)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	ht := vbruntime.NewHostTable()
	vm, err := vbruntime.New(prog, vbruntime.WithHost(ht))
	if err != nil {
		t.Fatalf("new vm failed: %v", err)
	}
	Register(ht, vm, "")

	if err := vm.Run("Book"); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if vm.Var("id").Number() != 1 || vm.Var("seq").Number() != 1 || vm.Var("cash").Number() != -42.5 {
		t.Fatalf("unexpected results id=%v seq=%v cash=%v", vm.Var("id"), vm.Var("seq"), vm.Var("cash"))
	}
	postings, err := vm.DataGet("AppData", "ledger.postings")
	if err != nil {
		t.Fatalf("data get failed: %v", err)
	}
	if postings.Len() != 2 {
		t.Fatalf("expected 2 postings, got %s", postings)
	}
	seq, _ := vm.DataGet("AppData", "meta.nextPostingSeq")
	if seq.Number() != 3 {
		t.Fatalf("unexpected counter %s", seq)
	}

	before := vm.Var("AppData").String()
	err = vm.CallSub("BadAmount")
	var re *vbruntime.RuntimeError
	if !errors.As(err, &re) || re.Kind != vbruntime.HostError {
		t.Fatalf("expected host error, got %v", err)
	}
	if vm.Var("AppData").String() != before {
		t.Fatalf("failed posting must not change the document")
	}
}
