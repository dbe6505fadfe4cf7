// Package status derives the admission status of an applicant's latest offer
// from fee payments and offer history.
package status

import (
	"strings"

	"github.com/nonsonwune/admission_cycle/models"
)

// OfferFact is the part of an offer row the rules look at.
type OfferFact struct {
	Offer  string
	Status string // empty when NULL
}

// Facts is everything Derive needs for one applicant.
type Facts struct {
	AdmissionPaid bool
	TuitionPaid   bool
	// History holds at most the two most recent offers, highest itr_no first.
	History []OfferFact
	// LatestOffer is the offer code at the latest iteration.
	LatestOffer string
}

// Derive applies the decision table. The first matching rule wins:
//
//	both paid, offer changed since an accepted previous offer -> accept & upgraded
//	both paid                                                 -> accept
//	neither paid                                              -> withdraw
//	admission only, waitlisted at latest iteration            -> upgrade
//	anything else                                             -> withdraw
func Derive(f Facts) string {
	switch {
	case f.AdmissionPaid && f.TuitionPaid:
		if upgradedSinceAccept(f.History) {
			return models.StatusAcceptUpgraded
		}
		return models.StatusAccept
	case !f.AdmissionPaid && !f.TuitionPaid:
		return models.StatusWithdraw
	case f.AdmissionPaid && f.LatestOffer == models.WaitlistOfferCode:
		return models.StatusUpgrade
	default:
		return models.StatusWithdraw
	}
}

func upgradedSinceAccept(history []OfferFact) bool {
	if len(history) < 2 {
		return false
	}
	curr, prev := history[0], history[1]
	return curr.Offer != prev.Offer && strings.Contains(prev.Status, models.StatusAccept)
}
