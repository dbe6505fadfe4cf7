package status

import (
	"testing"

	"github.com/nonsonwune/admission_cycle/models"
)

func TestDerive(t *testing.T) {
	cases := []struct {
		name  string
		facts Facts
		want  string
	}{
		{
			name:  "both paid single offer",
			facts: Facts{AdmissionPaid: true, TuitionPaid: true, History: []OfferFact{{Offer: "CS"}}, LatestOffer: "CS"},
			want:  models.StatusAccept,
		},
		{
			name: "both paid upgraded after accept",
			facts: Facts{AdmissionPaid: true, TuitionPaid: true,
				History: []OfferFact{{Offer: "CS"}, {Offer: "EE", Status: "accept"}}, LatestOffer: "CS"},
			want: models.StatusAcceptUpgraded,
		},
		{
			name: "both paid upgraded after accept and upgraded",
			facts: Facts{AdmissionPaid: true, TuitionPaid: true,
				History: []OfferFact{{Offer: "CS"}, {Offer: "EE", Status: "accept & upgraded"}}},
			want: models.StatusAcceptUpgraded,
		},
		{
			name: "both paid same offer twice",
			facts: Facts{AdmissionPaid: true, TuitionPaid: true,
				History: []OfferFact{{Offer: "CS"}, {Offer: "CS", Status: "accept"}}},
			want: models.StatusAccept,
		},
		{
			name: "both paid previous not accepted",
			facts: Facts{AdmissionPaid: true, TuitionPaid: true,
				History: []OfferFact{{Offer: "CS"}, {Offer: "EE", Status: "upgrade"}}},
			want: models.StatusAccept,
		},
		{
			name: "both paid previous status null",
			facts: Facts{AdmissionPaid: true, TuitionPaid: true,
				History: []OfferFact{{Offer: "CS"}, {Offer: "EE"}}},
			want: models.StatusAccept,
		},
		{
			name:  "both paid no history",
			facts: Facts{AdmissionPaid: true, TuitionPaid: true},
			want:  models.StatusAccept,
		},
		{
			name: "nothing paid ignores history",
			facts: Facts{History: []OfferFact{{Offer: "CS"}, {Offer: "EE", Status: "accept"}},
				LatestOffer: "WL"},
			want: models.StatusWithdraw,
		},
		{
			name:  "admission only waitlisted",
			facts: Facts{AdmissionPaid: true, LatestOffer: "WL"},
			want:  models.StatusUpgrade,
		},
		{
			name:  "admission only not waitlisted",
			facts: Facts{AdmissionPaid: true, LatestOffer: "CS"},
			want:  models.StatusWithdraw,
		},
		{
			name:  "waitlist code is case sensitive",
			facts: Facts{AdmissionPaid: true, LatestOffer: "wl"},
			want:  models.StatusWithdraw,
		},
		{
			name:  "tuition only",
			facts: Facts{TuitionPaid: true, LatestOffer: "WL"},
			want:  models.StatusWithdraw,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Derive(tc.facts); got != tc.want {
				t.Fatalf("Derive() = %q, want %q", got, tc.want)
			}
		})
	}
}
