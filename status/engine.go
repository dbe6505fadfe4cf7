package status

import (
	"context"
	"fmt"
	"log"

	"github.com/nonsonwune/admission_cycle/models"
	"github.com/nonsonwune/admission_cycle/store"
)

// Outcome is the result of deriving one applicant.
type Outcome struct {
	AppNo     string `json:"app_no"`
	Iteration int    `json:"iteration"`
	Status    string `json:"status,omitempty"`
	// Skipped is set when there is no offer row at the iteration to update.
	Skipped bool `json:"skipped,omitempty"`
}

// Report summarises a batch of derivations.
type Report struct {
	Iteration int            `json:"iteration"`
	Updated   int            `json:"updated"`
	Skipped   []string       `json:"skipped,omitempty"`
	ByStatus  map[string]int `json:"by_status,omitempty"`
}

// Observer is notified of every outcome; the metrics package implements it.
type Observer interface {
	ObserveDerivation(o Outcome)
}

// Engine reads facts through the caller's transaction and writes
// ITERATION_OFFER.status.
type Engine struct {
	observer Observer
}

// NewEngine returns an engine. A nil observer is allowed.
func NewEngine(observer Observer) *Engine {
	return &Engine{observer: observer}
}

// LatestIteration resolves the most recently uploaded iteration.
func (e *Engine) LatestIteration(ctx context.Context, q store.Queryer) (models.IterationDate, bool, error) {
	return store.LatestIteration(ctx, q)
}

// Facts gathers the inputs of Derive for appNo at iteration.
func (e *Engine) Facts(ctx context.Context, q store.Queryer, appNo string, iteration int) (Facts, bool, error) {
	var f Facts
	// a missing fee row derives like an unpaid one
	fee, _, err := store.FeePayment(ctx, q, appNo)
	if err != nil {
		return f, false, err
	}
	f.AdmissionPaid = fee.AdmissionPaid()
	f.TuitionPaid = fee.TuitionPaid()

	offers, err := store.RecentOffers(ctx, q, appNo, 2)
	if err != nil {
		return f, false, err
	}
	for _, o := range offers {
		f.History = append(f.History, OfferFact{Offer: o.Offer, Status: o.Status.String})
	}

	latest, found, err := store.OfferAt(ctx, q, appNo, iteration)
	if err != nil {
		return f, false, err
	}
	if found {
		f.LatestOffer = latest.Offer
	}
	return f, found, nil
}

// Apply derives and stores the status of appNo at iteration. When there is
// no offer row at that iteration nothing is written and the outcome is
// marked Skipped.
func (e *Engine) Apply(ctx context.Context, q store.Queryer, appNo string, iteration int) (Outcome, error) {
	out := Outcome{AppNo: appNo, Iteration: iteration}
	facts, found, err := e.Facts(ctx, q, appNo, iteration)
	if err != nil {
		return out, fmt.Errorf("derive %s: %w", appNo, err)
	}
	if !found {
		out.Skipped = true
		log.Printf("Warning: no offer for %s in iteration %d, status not updated", appNo, iteration)
		e.observe(out)
		return out, nil
	}

	out.Status = Derive(facts)
	if _, err := store.SetOfferStatus(ctx, q, appNo, iteration, out.Status); err != nil {
		return out, fmt.Errorf("derive %s: %w", appNo, err)
	}
	e.observe(out)
	return out, nil
}

// ApplyAll runs Apply for each app number and returns a summary.
func (e *Engine) ApplyAll(ctx context.Context, q store.Queryer, appNos []string, iteration int) (Report, error) {
	rep := Report{Iteration: iteration, ByStatus: make(map[string]int)}
	for _, appNo := range appNos {
		out, err := e.Apply(ctx, q, appNo, iteration)
		if err != nil {
			return rep, err
		}
		if out.Skipped {
			rep.Skipped = append(rep.Skipped, appNo)
			continue
		}
		rep.Updated++
		rep.ByStatus[out.Status]++
	}
	return rep, nil
}

func (e *Engine) observe(o Outcome) {
	if e.observer != nil {
		e.observer.ObserveDerivation(o)
	}
}
