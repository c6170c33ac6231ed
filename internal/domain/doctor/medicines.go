package doctor

import "strings"

// SuggestionLimit caps GET /medicines results.
const SuggestionLimit = 5

// CommonMedicines backs the prescription autocomplete.
var CommonMedicines = []string{
	"Paracetamol", "Ibuprofen", "Aspirin", "Amoxicillin", "Azithromycin",
	"Metformin", "Lisinopril", "Atorvastatin", "Omeprazole", "Ranitidine",
	"Amlodipine", "Losartan", "Hydrochlorthiazide", "Furosemide", "Glibenclamide",
	"Insulin", "Warfarin", "Heparin", "Clopidogrel", "Simvastatin",
	"Pravastatin", "Enalapril", "Ramipril", "Vitamin C", "Vitamin D",
	"Multivitamin", "Zinc", "Iron", "Calcium", "Magnesium",
	"Probiotic", "Cough Syrup", "Antacid", "Laxative", "Antihistamine",
	"Decongestant",
}

// SuggestMedicines returns up to SuggestionLimit catalog names containing
// query, case-insensitively, in catalog order. A blank query matches nothing.
func SuggestMedicines(query string) []string {
	q := strings.ToLower(strings.TrimSpace(query))
	out := []string{}
	if q == "" {
		return out
	}
	for _, m := range CommonMedicines {
		if strings.Contains(strings.ToLower(m), q) {
			out = append(out, m)
			if len(out) == SuggestionLimit {
				break
			}
		}
	}
	return out
}
