package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/edhedges/receive-kit/internal/domain"
	"github.com/edhedges/receive-kit/internal/infra/crypto"
)

// Stage names the pipeline stage a rejected submission failed in.
type Stage string

const (
	StageShape     Stage = "shape"
	StageIdentity  Stage = "identity"
	StageIntegrity Stage = "integrity"
	StageOnChain   Stage = "onchain"
)

// Outcome is the terminal state of one verification run. Exactly one of
// Errors or Records is populated on rejection, holding only the failing
// stage's findings; stages never mix their error lists.
type Outcome struct {
	Accepted bool
	Token    string
	Stage    Stage
	Errors   []domain.ValidationError
	Records  []domain.RecordResult
}

// VerifyAttestation runs the verification pipeline: shape, off-chain
// identity, per-record integrity, then on-chain cross-validation. Each stage
// evaluates all of its own checks before deciding; the pipeline halts at the
// first stage that found anything.
type VerifyAttestation struct {
	Records domain.RecordVerifier
	Fetcher LogFetcher

	// Registry, when set, restricts TraitAttested matching to events emitted
	// by this contract address.
	Registry string
}

// Execute returns a non-nil Outcome for every decidable submission, accepted
// or rejected. A non-nil error means infrastructure failure (provider
// unreachable, receipt missing) and carries no verification verdict.
func (uc *VerifyAttestation) Execute(ctx context.Context, sub domain.Submission) (*Outcome, error) {
	if errs := validateShape(sub); len(errs) > 0 {
		return &Outcome{Stage: StageShape, Errors: errs}, nil
	}
	if errs := verifyIdentity(sub); len(errs) > 0 {
		return &Outcome{Stage: StageIdentity, Errors: errs}, nil
	}
	if results, failed := uc.checkRecords(sub); failed {
		return &Outcome{Stage: StageIntegrity, Records: results}, nil
	}

	logs, err := uc.Fetcher.FetchLogs(ctx, sub.Data)
	if err != nil {
		return nil, err
	}
	if errs := uc.crossValidate(sub, logs); len(errs) > 0 {
		return &Outcome{Stage: StageOnChain, Errors: errs}, nil
	}
	return &Outcome{Accepted: true, Token: sub.Token}, nil
}

// validateShape checks every required top-level field independently and
// reports one error per violated rule.
func validateShape(sub domain.Submission) []domain.ValidationError {
	var errs []domain.ValidationError
	if strings.TrimSpace(sub.Token) == "" {
		errs = append(errs, domain.ValidationError{Key: "token", Message: "token is required"})
	}
	if strings.TrimSpace(sub.Subject) == "" {
		errs = append(errs, domain.ValidationError{Key: "subject", Message: "subject is required"})
	}
	if len(sub.Data) == 0 {
		errs = append(errs, domain.ValidationError{Key: "data", Message: "data must be a non-empty list"})
	}
	if strings.TrimSpace(sub.PackedData) == "" {
		errs = append(errs, domain.ValidationError{Key: "packedData", Message: "packedData is required"})
	}
	if strings.TrimSpace(sub.Signature) == "" {
		errs = append(errs, domain.ValidationError{Key: "signature", Message: "signature is required"})
	}
	return errs
}

// verifyIdentity runs the signer check and the content hash check. The two
// are independent; both always run and their findings are aggregated.
func verifyIdentity(sub domain.Submission) []domain.ValidationError {
	var errs []domain.ValidationError

	if message, err := crypto.DecodePacked(sub.PackedData); err != nil {
		errs = append(errs, domain.ValidationError{
			Key:     "subject",
			Message: "cannot verify signer: " + err.Error(),
		})
	} else if signer, err := crypto.RecoverSigner(message, sub.Signature); err != nil {
		errs = append(errs, domain.ValidationError{
			Key:     "subject",
			Message: "cannot verify signer: " + err.Error(),
		})
	} else if !strings.EqualFold(signer.Hex(), sub.Subject) {
		errs = append(errs, domain.ValidationError{
			Key:     "subject",
			Message: fmt.Sprintf("signature recovers %s, claimed %s", signer.Hex(), sub.Subject),
		})
	}

	if computed, err := crypto.PackedPayloadHash(sub.Data, sub.Token); err != nil {
		errs = append(errs, domain.ValidationError{
			Key:     "packedData",
			Message: "cannot recompute content hash: " + err.Error(),
		})
	} else if !strings.EqualFold(computed, sub.PackedData) {
		errs = append(errs, domain.ValidationError{
			Key:     "packedData",
			Message: fmt.Sprintf("content hashes to %s, claimed %s", computed, sub.PackedData),
		})
	}
	return errs
}

// checkRecords runs the off-chain integrity primitive over every record in
// submission order. All records are reported, including clean ones.
func (uc *VerifyAttestation) checkRecords(sub domain.Submission) ([]domain.RecordResult, bool) {
	results := make([]domain.RecordResult, 0, len(sub.Data))
	failed := false
	for _, record := range sub.Data {
		errs := uc.Records.VerifyRecord(record)
		if len(errs) > 0 {
			failed = true
		}
		if errs == nil {
			errs = []domain.ValidationError{}
		}
		results = append(results, domain.RecordResult{
			Layer2Hash: record.Layer2Hash(),
			Errors:     errs,
		})
	}
	return results, failed
}

// crossValidate matches each record against its transaction's decoded logs.
// Pairs are checked independently and findings aggregated; only the
// TraitAttested lookup short-circuits the field comparisons within a pair.
func (uc *VerifyAttestation) crossValidate(sub domain.Submission, logs [][]domain.DecodedLog) []domain.ValidationError {
	var errs []domain.ValidationError
	for i, record := range sub.Data {
		attested, ok := uc.findTraitAttested(logs[i])
		if !ok {
			errs = append(errs, domain.ValidationError{
				Key:     domain.TraitAttestedEvent,
				Message: fmt.Sprintf("transaction %s recorded no %s event", record.Tx(), domain.TraitAttestedEvent),
			})
			continue
		}
		errs = append(errs, compareEventField(attested, "subject", "subject", sub.Subject)...)
		errs = append(errs, compareEventField(attested, "attester", "attester", record.Attester())...)
		errs = append(errs, compareEventField(attested, "dataHash", "layer2Hash", record.Layer2Hash())...)
	}
	return errs
}

func (uc *VerifyAttestation) findTraitAttested(logs []domain.DecodedLog) (domain.DecodedLog, bool) {
	for _, lg := range logs {
		if lg.Name != domain.TraitAttestedEvent {
			continue
		}
		if uc.Registry != "" && !strings.EqualFold(lg.Address, uc.Registry) {
			continue
		}
		return lg, true
	}
	return domain.DecodedLog{}, false
}

func compareEventField(lg domain.DecodedLog, field, key, claimed string) []domain.ValidationError {
	recorded, ok := lg.Event(field)
	if !ok {
		return []domain.ValidationError{{
			Key:     key,
			Message: fmt.Sprintf("%s event is missing field %s", domain.TraitAttestedEvent, field),
		}}
	}
	if !strings.EqualFold(recorded, claimed) {
		return []domain.ValidationError{{
			Key:     key,
			Message: fmt.Sprintf("on-chain %s is %s, claimed %s", field, recorded, claimed),
		}}
	}
	return nil
}
