package controllers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"github.com/xamogh/casbin-test/engine"
	"github.com/xamogh/casbin-test/logging"
	"github.com/xamogh/casbin-test/models"
)

// PolicyController handles the policy management and enforcement routes.
// Every handler runs behind bearer-token auth; by the time a request lands
// here it carries a verified account id.
type PolicyController struct {
	Engine engine.Engine
}

func invalidArgument(c *gin.Context, reason string) {
	logging.From(c.Request.Context()).Warn("Invalid request", "reason", reason)
	c.JSON(http.StatusBadRequest, gin.H{"error": reason})
}

func dependencyFailure(c *gin.Context, operation string, err error) {
	logging.From(c.Request.Context()).Error("Decision engine call failed",
		"operation", operation,
		"error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "unexpected error occurred"})
}

func (pc *PolicyController) AddPolicy(c *gin.Context) {
	var tuple models.PolicyTuple
	if err := c.ShouldBindJSON(&tuple); err != nil {
		invalidArgument(c, "sub, obj and act are required")
		return
	}

	added, err := pc.Engine.AddPolicy(c.Request.Context(), tuple.Sub, tuple.Obj, tuple.Act)
	if err != nil {
		dependencyFailure(c, "addPolicy", err)
		return
	}

	logging.From(c.Request.Context()).Info("Policy added",
		"sub", tuple.Sub, "obj", tuple.Obj, "act", tuple.Act, "added", added)
	c.JSON(http.StatusOK, gin.H{"added": added})
}

func (pc *PolicyController) AddPolicies(c *gin.Context) {
	batch, ok := bindBatch(c)
	if !ok {
		return
	}

	rules := lo.Map(batch, func(t models.PolicyTuple, _ int) []string { return t.Rule() })
	added, err := pc.Engine.AddPolicies(c.Request.Context(), rules)
	if err != nil {
		dependencyFailure(c, "addPolicies", err)
		return
	}

	logging.From(c.Request.Context()).Info("Policy batch added", "size", len(batch), "added", added)
	c.JSON(http.StatusOK, gin.H{"added": added})
}

func (pc *PolicyController) RemovePolicy(c *gin.Context) {
	var tuple models.PolicyTuple
	if err := c.ShouldBindJSON(&tuple); err != nil {
		invalidArgument(c, "sub, obj and act are required")
		return
	}

	removed, err := pc.Engine.RemovePolicy(c.Request.Context(), tuple.Sub, tuple.Obj, tuple.Act)
	if err != nil {
		dependencyFailure(c, "removePolicy", err)
		return
	}

	logging.From(c.Request.Context()).Info("Policy removed",
		"sub", tuple.Sub, "obj", tuple.Obj, "act", tuple.Act, "removed", removed)
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

// RemovePolicies processes each element independently: one element failing
// to remove does not abort the rest. Partial success is reported by count.
func (pc *PolicyController) RemovePolicies(c *gin.Context) {
	batch, ok := bindBatch(c)
	if !ok {
		return
	}

	log := logging.From(c.Request.Context())
	removed := 0
	for _, tuple := range batch {
		ok, err := pc.Engine.RemovePolicy(c.Request.Context(), tuple.Sub, tuple.Obj, tuple.Act)
		if err != nil {
			log.Error("Decision engine call failed",
				"operation", "removePolicy",
				"sub", tuple.Sub, "obj", tuple.Obj, "act", tuple.Act,
				"error", err)
			continue
		}
		if ok {
			removed++
		}
	}

	log.Info("Policy batch removed", "size", len(batch), "removed", removed)
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

// GetFilteredPolicies reads the partial filter from query parameters.
func (pc *PolicyController) GetFilteredPolicies(c *gin.Context) {
	filter, ok := filterFromQuery(c)
	if !ok {
		return
	}

	rules, err := pc.Engine.GetFilteredPolicy(c.Request.Context(), filter)
	if err != nil {
		dependencyFailure(c, "getFilteredPolicy", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"policies": tuplesFromRules(rules)})
}

// RemoveFilteredPolicies reads the same logical filter from the request
// body; the translator normalizes both transports into one structure.
func (pc *PolicyController) RemoveFilteredPolicies(c *gin.Context) {
	var input models.FilterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		invalidArgument(c, "invalid filter payload")
		return
	}

	fieldIndex := 0
	if input.FieldIndex != nil {
		fieldIndex = *input.FieldIndex
	}
	filter, ok := buildFilter(c, fieldIndex, input.Sub != nil || input.Obj != nil || input.Act != nil, input.Values())
	if !ok {
		return
	}

	removed, err := pc.Engine.RemoveFilteredPolicy(c.Request.Context(), filter)
	if err != nil {
		dependencyFailure(c, "removeFilteredPolicy", err)
		return
	}

	logging.From(c.Request.Context()).Info("Filtered policies removed", "removed", removed)
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

func (pc *PolicyController) Enforce(c *gin.Context) {
	var tuple models.PolicyTuple
	if err := c.ShouldBindJSON(&tuple); err != nil {
		invalidArgument(c, "sub, obj and act are required")
		return
	}

	allowed, err := pc.Engine.Enforce(c.Request.Context(), tuple.Sub, tuple.Obj, tuple.Act)
	if err != nil {
		dependencyFailure(c, "enforce", err)
		return
	}

	logging.From(c.Request.Context()).Info("Enforcement decided",
		"sub", tuple.Sub, "obj", tuple.Obj, "act", tuple.Act, "allowed", allowed)
	c.JSON(http.StatusOK, gin.H{"allowed": allowed})
}

func (pc *PolicyController) ListPolicies(c *gin.Context) {
	rules, err := pc.Engine.GetAllPolicies(c.Request.Context())
	if err != nil {
		dependencyFailure(c, "getAllPolicies", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"policies": tuplesFromRules(rules)})
}

// bindBatch parses and validates a tuple batch. Validation is
// all-or-nothing: the first offending element rejects the whole request
// before any engine call is made.
func bindBatch(c *gin.Context) ([]models.PolicyTuple, bool) {
	// plain decode instead of binding: element validation happens below so
	// the response can name the first offending element
	var batch []models.PolicyTuple
	if err := json.NewDecoder(c.Request.Body).Decode(&batch); err != nil {
		invalidArgument(c, "expected a JSON array of policy tuples")
		return nil, false
	}
	if len(batch) == 0 {
		invalidArgument(c, "policy batch must not be empty")
		return nil, false
	}
	for i, tuple := range batch {
		if err := tuple.Validate(); err != nil {
			invalidArgument(c, fmt.Sprintf("policy %d: %v", i, err))
			return nil, false
		}
	}
	return batch, true
}

func filterFromQuery(c *gin.Context) (engine.Filter, bool) {
	fieldIndex := 0
	if raw, present := c.GetQuery("fieldIndex"); present {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			invalidArgument(c, "fieldIndex must be an integer")
			return engine.Filter{}, false
		}
		fieldIndex = parsed
	}

	// presence matters, not value: an explicitly empty query param is
	// still a filter value
	anyPresent := false
	values := make([]string, 0, 3)
	for _, name := range []string{"sub", "obj", "act"} {
		if v, present := c.GetQuery(name); present {
			anyPresent = true
			values = append(values, v)
		}
	}

	return buildFilter(c, fieldIndex, anyPresent, values)
}

func buildFilter(c *gin.Context, fieldIndex int, anyPresent bool, values []string) (engine.Filter, bool) {
	if fieldIndex < 0 {
		invalidArgument(c, "fieldIndex must not be negative")
		return engine.Filter{}, false
	}
	if !anyPresent {
		invalidArgument(c, "at least one of sub, obj or act is required")
		return engine.Filter{}, false
	}

	filter := engine.Translate(fieldIndex, values)
	if filter.IsEmpty() {
		invalidArgument(c, "filter resolves to no tuple field")
		return engine.Filter{}, false
	}
	return filter, true
}

func tuplesFromRules(rules [][]string) []models.PolicyTuple {
	return lo.Map(rules, func(rule []string, _ int) models.PolicyTuple {
		return models.TupleFromRule(rule)
	})
}
