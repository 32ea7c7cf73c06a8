// Package schema provides declarative validation for step forms.
//
// A Schema maps field names to a Field: a type constraint plus a requirement rule.
// Requirements may depend on other fields of the same form or on a Snapshot of the
// whole answer record, which is passed in explicitly so validation stays a pure
// function of its inputs.
//
// Basic usage:
//
//	s := schema.Schema{
//	    "patientId": {Type: schema.Pattern(`^\d{6,10}$`)},
//	    "testTaken": {Type: schema.Strings("pcr", "antigen", "none")},
//	    "pcrTestDate": {
//	        Type:     schema.Date(schema.NotFuture),
//	        Required: schema.WhenContains("testTaken", "pcr"),
//	    },
//	}
//
//	res := schema.Check(s, values, schema.Snapshot{Answers: all})
//	if !res.Valid() {
//	    // res.Errors holds one *ValidationError per failing field
//	}
//
// Empty values (nil, blank strings, empty lists, empty multi-selects) are only
// checked for requiredness; type constraints apply to present values.
package schema
