package services

import (
	"context"
	"errors"

	"github.com/anonto42/circles/backend/internal/models"
	"github.com/anonto42/circles/backend/internal/repositories"
	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
)

// ReconcileReport counts the counters that were out of date.
type ReconcileReport struct {
	Pages  int `json:"pages"`
	Groups int `json:"groups"`
}

// Reconciler recomputes membersCount and followersCount from the relation
// store, correcting drift left by failed or racing writes.
type Reconciler struct {
	store *repositories.Store
	log   logrus.FieldLogger
}

// NewReconciler creates a Reconciler.
func NewReconciler(store *repositories.Store, log logrus.FieldLogger) *Reconciler {
	return &Reconciler{store: store, log: log}
}

// ReconcileCounters rewrites every community counter that disagrees with its edges.
func (r *Reconciler) ReconcileCounters(ctx context.Context) (*ReconcileReport, error) {
	report := &ReconcileReport{}
	var result *multierror.Error

	pageIDs, err := r.store.Pages.ListPageIDs(ctx)
	if err != nil {
		return nil, err
	}
	for _, id := range pageIDs {
		fixed, err := r.reconcile(ctx, models.CommunityPage, id)
		if err != nil {
			result = multierror.Append(result, err)
		}
		if fixed {
			report.Pages++
		}
	}

	groupIDs, err := r.store.Groups.ListGroupIDs(ctx)
	if err != nil {
		return nil, err
	}
	for _, id := range groupIDs {
		fixed, err := r.reconcile(ctx, models.CommunityGroup, id)
		if err != nil {
			result = multierror.Append(result, err)
		}
		if fixed {
			report.Groups++
		}
	}

	countersReconciled.WithLabelValues("followers").Add(float64(report.Pages))
	countersReconciled.WithLabelValues("members").Add(float64(report.Groups))
	if err := result.ErrorOrNil(); err != nil {
		r.log.WithError(err).Warn("counter reconciliation incomplete")
	}
	return report, nil
}

func (r *Reconciler) reconcile(ctx context.Context, kind models.Community, id string) (bool, error) {
	_, _, memberKind := communityKinds(kind)
	n, err := r.store.Relations.Count(ctx, memberKind, id)
	if err != nil {
		return false, err
	}
	if kind == models.CommunityGroup {
		group, err := r.store.Groups.GetGroupByID(ctx, id)
		if err != nil || group.MembersCount == n {
			return false, ignoreMissing(err)
		}
		return true, r.store.Groups.SetMembersCount(ctx, id, n)
	}
	page, err := r.store.Pages.GetPageByID(ctx, id)
	if err != nil || page.FollowersCount == n {
		return false, ignoreMissing(err)
	}
	return true, r.store.Pages.SetFollowersCount(ctx, id, n)
}

func ignoreMissing(err error) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return nil
	}
	return err
}
