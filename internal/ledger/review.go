package ledger

import (
	"context"
	"fmt"

	"price-recon/internal/reconcile/model"
)

// ApproveSuggestion links the suggested pair and drops the suggestion.
func (s *Store) ApproveSuggestion(ctx context.Context, id int64) (model.SourceListing, error) {
	var linked model.SourceListing
	err := s.WithTx(ctx, func(ctx context.Context, tx *Tx) error {
		sug, err := tx.GetSuggestion(ctx, id)
		if err != nil {
			return err
		}
		l, err := tx.GetListing(ctx, sug.ListingID)
		if err != nil {
			return err
		}
		if l.Resolved() {
			return fmt.Errorf("listing %d: %w", l.ID, ErrAlreadyLinked)
		}
		if err := tx.SetCanonicalLink(ctx, l.ID, sug.CanonicalID); err != nil {
			return err
		}
		l.CanonicalID = &sug.CanonicalID
		linked = l
		return nil
	})
	if err != nil {
		return model.SourceListing{}, err
	}
	s.log.Info().Int64("suggestion", id).Int64("listing", linked.ID).Int64("canonical", *linked.CanonicalID).Msg("suggestion approved")
	return linked, nil
}

func (s *Store) RejectSuggestion(ctx context.Context, id int64) error {
	err := s.WithTx(ctx, func(ctx context.Context, tx *Tx) error {
		return tx.DeleteSuggestion(ctx, id)
	})
	if err != nil {
		return err
	}
	s.log.Info().Int64("suggestion", id).Msg("suggestion rejected")
	return nil
}

// ForceLink links a listing to a canonical product chosen by a reviewer,
// replacing any previous link.
func (s *Store) ForceLink(ctx context.Context, listingID, canonicalID int64) (model.SourceListing, error) {
	var linked model.SourceListing
	err := s.WithTx(ctx, func(ctx context.Context, tx *Tx) error {
		if _, err := tx.GetCanonical(ctx, canonicalID); err != nil {
			return err
		}
		l, err := tx.GetListing(ctx, listingID)
		if err != nil {
			return err
		}
		if err := tx.SetCanonicalLink(ctx, listingID, canonicalID); err != nil {
			return err
		}
		l.CanonicalID = &canonicalID
		linked = l
		return nil
	})
	if err != nil {
		return model.SourceListing{}, err
	}
	s.log.Info().Int64("listing", listingID).Int64("canonical", canonicalID).Msg("listing force linked")
	return linked, nil
}
