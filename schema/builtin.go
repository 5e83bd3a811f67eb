package schema

const rootTemplate = `{
  "ledger": {
    "accounts": [],
    "assetTypes": [],
    "batches": [],
    "journals": [],
    "postings": [],
    "postingsText": ""
  },
  "meta": {
    "nextAccountId": 1,
    "nextAssetTypeId": 1,
    "nextBatchId": 1,
    "nextJournalId": 1,
    "nextPostingSeq": 1
  }
}`

const rootJSONSchema = `{
  "type": "object",
  "required": ["ledger", "meta"],
  "properties": {
    "ledger": {
      "type": "object",
      "required": ["accounts", "assetTypes", "batches", "journals", "postings"],
      "properties": {
        "accounts": {"type": "array"},
        "assetTypes": {"type": "array"},
        "batches": {"type": "array"},
        "journals": {"type": "array"},
        "postings": {"type": "array"},
        "postingsText": {"type": "string"}
      }
    },
    "meta": {
      "type": "object",
      "properties": {
        "nextAccountId": {"type": "integer", "minimum": 1},
        "nextAssetTypeId": {"type": "integer", "minimum": 1},
        "nextBatchId": {"type": "integer", "minimum": 1},
        "nextJournalId": {"type": "integer", "minimum": 1},
        "nextPostingSeq": {"type": "integer", "minimum": 1}
      }
    }
  }
}`

const customerTemplate = `{"name": "", "age": 0}`

const customerJSONSchema = `{
  "type": "object",
  "required": ["name", "age"],
  "properties": {
    "name": {"type": "string"},
    "age": {"type": "number", "minimum": 0}
  }
}`

// Builtin returns a registry holding the Root accounting template and the
// Customer record.
func Builtin() *Registry {
	r := NewRegistry()
	for _, s := range []struct{ name, template, jsonSchema string }{
		{"Root", rootTemplate, rootJSONSchema},
		{"Customer", customerTemplate, customerJSONSchema},
	} {
		if err := r.RegisterJSON(s.name, s.template); err != nil {
			panic(err)
		}
		if err := r.AttachJSONSchema(s.name, s.jsonSchema); err != nil {
			panic(err)
		}
	}
	return r
}
