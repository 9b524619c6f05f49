// Package matching scores consolidated participants against candidate
// registrations and proposes one registration per participant.
//
// Scores are advisory. ResolveBatch walks participants from strongest to
// weakest best match and lets the stronger claim win a contested
// registration; the weaker participant is retried against the unclaimed pool
// once. There is no backtracking, so long conflict chains can leave a
// participant pending even though a globally optimal assignment would place
// it. Operators correct those cases by hand.
package matching
