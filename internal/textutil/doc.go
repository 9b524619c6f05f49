// Package textutil provides name folding and edit-distance helpers used by
// participant exclusion and identity matching.
//
// NormalizeName folds a display name to lowercase ASCII-ish form: accents are
// stripped through Unicode decomposition, separators collapse to single
// spaces, and remaining punctuation is dropped. The folded form is only ever
// used for comparison; grouping keys elsewhere keep the raw trimmed string.
package textutil
