package application

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/ahrav/go-concord/internal/domain"
)

// RegisterConfigValidators registers the custom tags used by the
// configuration structs: provider and similaritymethod.
// RegisterConfigValidators returns an error if any registration fails.
func RegisterConfigValidators(v *validator.Validate) error {
	if err := v.RegisterValidation("provider", validateProvider); err != nil {
		return fmt.Errorf("failed to register provider validator: %w", err)
	}
	if err := v.RegisterValidation("similaritymethod", validateSimilarityMethod); err != nil {
		return fmt.Errorf("failed to register similaritymethod validator: %w", err)
	}
	return nil
}

// validateProvider accepts the provider tags that have an adapter.
func validateProvider(fl validator.FieldLevel) bool {
	return domain.Provider(fl.Field().String()).Valid()
}

// validateSimilarityMethod accepts jaccard, cosine and levenshtein.
func validateSimilarityMethod(fl validator.FieldLevel) bool {
	switch domain.SimilarityMethod(fl.Field().String()) {
	case domain.MethodJaccard, domain.MethodCosine, domain.MethodLevenshtein:
		return true
	default:
		return false
	}
}

// validateSemantics checks the rules struct tags cannot express: unique
// model names, a base URL for generic backends and a usable storage backend.
// All problems are collected into one domain.ValidationError.
func validateSemantics(cfg *Config) error {
	verr := domain.NewValidationError("config")

	seen := make(map[string]struct{}, len(cfg.Models))
	for i, m := range cfg.Models {
		if _, dup := seen[m.Name]; dup {
			verr.AddError(fmt.Sprintf("models[%d]: duplicate model name %q", i, m.Name))
		}
		seen[m.Name] = struct{}{}

		if m.Provider == domain.ProviderGeneric && m.ProxyURL == "" {
			verr.AddError(fmt.Sprintf("models[%d]: provider %q requires proxyUrl", i, m.Provider))
		}
	}

	if err := cfg.Storage.Validate(); err != nil {
		verr.AddError(err.Error())
	}

	if verr.HasErrors() {
		return verr
	}
	return nil
}

// describeValidationErrors flattens validator output into readable
// field-level messages.
func describeValidationErrors(err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	out := domain.NewValidationError("config")
	for _, fe := range verrs {
		if fe.Param() != "" {
			out.AddError(fmt.Sprintf("%s: failed %q (%s)", fe.Namespace(), fe.Tag(), fe.Param()))
			continue
		}
		out.AddError(fmt.Sprintf("%s: failed %q", fe.Namespace(), fe.Tag()))
	}
	return out
}
