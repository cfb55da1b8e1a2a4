package index

// objectSynonyms maps alternative object names to their canonical form.
// Scene analysis labels the same item inconsistently across captures
// ("eyeglasses" one frame, "glasses" the next), so lookups expand through
// this table before touching the hash index.
var objectSynonyms = map[string]string{
	// Eyewear
	"eyeglasses":      "glasses",
	"eye glasses":     "glasses",
	"spectacles":      "glasses",
	"specs":           "glasses",
	"reading glasses": "glasses",
	"sunglasses":      "glasses",
	// Phone variants
	"mobile":       "phone",
	"mobile phone": "phone",
	"cell phone":   "phone",
	"cellphone":    "phone",
	"smartphone":   "phone",
	"iphone":       "phone",
	"android":      "phone",
	// Drinkware
	"mug":        "cup",
	"coffee mug": "cup",
	"coffee cup": "cup",
	"tea cup":    "cup",
	// Keys
	"car keys":   "keys",
	"house keys": "keys",
	"key":        "keys",
	// Remote
	"tv remote":      "remote",
	"remote control": "remote",
	// Wallet
	"purse":    "wallet",
	"billfold": "wallet",
	// Laptop/computer
	"notebook": "laptop",
	"macbook":  "laptop",
	"computer": "laptop",
	// Headphones
	"earphones": "headphones",
	"earbuds":   "headphones",
	"airpods":   "headphones",
}

// synonymGroups maps each canonical form to the full set of names in its
// group, canonical included. Built once from objectSynonyms.
var synonymGroups = buildSynonymGroups()

func buildSynonymGroups() map[string]map[string]bool {
	groups := make(map[string]map[string]bool)
	for syn, canonical := range objectSynonyms {
		if groups[canonical] == nil {
			groups[canonical] = map[string]bool{canonical: true}
		}
		groups[canonical][syn] = true
	}
	return groups
}

// expandTerms returns the query term plus every synonym in its group.
func expandTerms(name string) map[string]bool {
	terms := map[string]bool{name: true}
	if canonical, ok := objectSynonyms[name]; ok {
		terms[canonical] = true
		for syn := range synonymGroups[canonical] {
			terms[syn] = true
		}
	}
	for syn := range synonymGroups[name] {
		terms[syn] = true
	}
	return terms
}
