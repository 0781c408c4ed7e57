package knowledge

import (
	"reflect"
	"testing"
)

func TestExtractKeyTermsFiltersStopwords(t *testing.T) {
	terms := ExtractKeyTerms("What is the price of the item?")
	for _, banned := range []string{"what", "is", "the", "of"} {
		for _, term := range terms {
			if term == banned {
				t.Fatalf("stop word %q leaked into terms %v", banned, terms)
			}
		}
	}
	want := map[string]bool{"price": false, "item": false}
	for _, term := range terms {
		if _, ok := want[term]; ok {
			want[term] = true
		}
	}
	for term, found := range want {
		if !found {
			t.Fatalf("expected term %q in %v", term, terms)
		}
	}
	if len(terms) > 5 {
		t.Fatalf("expected at most 5 terms, got %v", terms)
	}
}

func TestExtractKeyTermsBilingual(t *testing.T) {
	terms := ExtractKeyTerms("Magkano ang shipping?")
	if !reflect.DeepEqual(terms, []string{"magkano", "shipping"}) {
		t.Fatalf("unexpected terms: %v", terms)
	}
}

func TestExtractKeyTermsDedupesAndCaps(t *testing.T) {
	terms := ExtractKeyTerms("durian durian mango banana papaya guava rambutan lanzones")
	if len(terms) != 5 {
		t.Fatalf("expected 5 terms, got %v", terms)
	}
	if terms[0] != "durian" || terms[1] != "mango" {
		t.Fatalf("expected original order with dedupe, got %v", terms)
	}
	seen := map[string]bool{}
	for _, term := range terms {
		if seen[term] {
			t.Fatalf("duplicate term %q in %v", term, terms)
		}
		seen[term] = true
	}
}

func TestExtractKeyTermsStripsPunctuationAndShortTokens(t *testing.T) {
	terms := ExtractKeyTerms("Hi!! Do u sell GCash-compatible vouchers??")
	for _, term := range terms {
		if len(term) <= 2 {
			t.Fatalf("short token %q survived in %v", term, terms)
		}
	}
	found := false
	for _, term := range terms {
		if term == "gcash" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected lowercase gcash in %v", terms)
	}
}

func TestExtractKeyTermsEmpty(t *testing.T) {
	if terms := ExtractKeyTerms("what is the"); len(terms) != 0 {
		t.Fatalf("expected no terms, got %v", terms)
	}
	if terms := ExtractKeyTerms(""); len(terms) != 0 {
		t.Fatalf("expected no terms for empty query, got %v", terms)
	}
}
