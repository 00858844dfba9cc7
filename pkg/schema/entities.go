package schema

import (
	"strings"

	"github.com/candig/fedsearch/pkg/types"
)

// FieldKind is the wire type of an entity attribute.
type FieldKind int

const (
	KindString FieldKind = iota
	KindInt
	KindDouble
	KindBool
)

// FieldDescriptor describes one tiered attribute of a clinical entity.
type FieldDescriptor struct {
	Name string
	Kind FieldKind
	Tier int
}

// Entity is one clinical record type, described entirely by its field
// table. The federation layer never branches on which entity it handles;
// everything is driven by these descriptors.
type Entity struct {
	Name    string // singular, e.g. "patient"
	Plural  string // collection name and JSON key, e.g. "patients"
	Fields  []FieldDescriptor
	byName  map[string]*FieldDescriptor
}

// commonFields are always visible regardless of tier.
var commonFields = map[string]bool{
	"id":          true,
	"name":        true,
	"datasetId":   true,
	"created":     true,
	"updated":     true,
	"description": true,
}

// IsCommonField reports whether a field is one of the always-visible
// identifying fields.
func IsCommonField(name string) bool {
	return commonFields[name]
}

// Field returns the descriptor for a named attribute.
func (e *Entity) Field(name string) (*FieldDescriptor, bool) {
	f, ok := e.byName[name]
	return f, ok
}

// Entities is the clinical metadata catalog. Tier assignments follow the
// usual split: demographic context is registered-tier, clinical detail is
// controlled-tier, and potentially identifying detail is restricted.
var Entities = []*Entity{
	{
		Name:   "patient",
		Plural: "patients",
		Fields: []FieldDescriptor{
			{Name: "gender", Kind: KindString, Tier: types.TierPublic},
			{Name: "ethnicity", Kind: KindString, Tier: types.TierRegistered},
			{Name: "race", Kind: KindString, Tier: types.TierRegistered},
			{Name: "provinceOfResidence", Kind: KindString, Tier: types.TierControlled},
			{Name: "dateOfBirth", Kind: KindString, Tier: types.TierRestricted},
			{Name: "dateOfDeath", Kind: KindString, Tier: types.TierRestricted},
			{Name: "causeOfDeath", Kind: KindString, Tier: types.TierControlled},
			{Name: "autopsyTissueForResearch", Kind: KindString, Tier: types.TierControlled},
			{Name: "priorMalignancy", Kind: KindString, Tier: types.TierRegistered},
			{Name: "familyHistoryAndRiskFactors", Kind: KindString, Tier: types.TierRestricted},
			{Name: "occupationalOrEnvironmentalExposure", Kind: KindString, Tier: types.TierControlled},
		},
	},
	{
		Name:   "sample",
		Plural: "samples",
		Fields: []FieldDescriptor{
			{Name: "patientId", Kind: KindString, Tier: types.TierRegistered},
			{Name: "sampleType", Kind: KindString, Tier: types.TierPublic},
			{Name: "quantity", Kind: KindDouble, Tier: types.TierRegistered},
			{Name: "units", Kind: KindString, Tier: types.TierRegistered},
			{Name: "collectionDate", Kind: KindString, Tier: types.TierControlled},
			{Name: "collectionHospital", Kind: KindString, Tier: types.TierControlled},
			{Name: "sampleSite", Kind: KindString, Tier: types.TierRegistered},
			{Name: "tissueDiseaseState", Kind: KindString, Tier: types.TierRegistered},
			{Name: "anatomicSiteTheSampleObtainedFrom", Kind: KindString, Tier: types.TierControlled},
			{Name: "pathologyReportId", Kind: KindString, Tier: types.TierControlled},
		},
	},
	{
		Name:   "enrollment",
		Plural: "enrollments",
		Fields: []FieldDescriptor{
			{Name: "patientId", Kind: KindString, Tier: types.TierRegistered},
			{Name: "enrollmentInstitution", Kind: KindString, Tier: types.TierPublic},
			{Name: "enrollmentApprovalDate", Kind: KindString, Tier: types.TierControlled},
			{Name: "crossEnrollment", Kind: KindBool, Tier: types.TierRegistered},
			{Name: "otherPersonalizedMedicineStudyName", Kind: KindString, Tier: types.TierControlled},
			{Name: "ageAtEnrollment", Kind: KindInt, Tier: types.TierRestricted},
			{Name: "eligibilityCategory", Kind: KindString, Tier: types.TierRegistered},
			{Name: "statusAtEnrollment", Kind: KindString, Tier: types.TierRegistered},
			{Name: "primaryOncologistName", Kind: KindString, Tier: types.TierRestricted},
		},
	},
	{
		Name:   "diagnosis",
		Plural: "diagnoses",
		Fields: []FieldDescriptor{
			{Name: "patientId", Kind: KindString, Tier: types.TierRegistered},
			{Name: "diagnosisDate", Kind: KindString, Tier: types.TierControlled},
			{Name: "cancerType", Kind: KindString, Tier: types.TierPublic},
			{Name: "classification", Kind: KindString, Tier: types.TierRegistered},
			{Name: "histology", Kind: KindString, Tier: types.TierRegistered},
			{Name: "tumorGrade", Kind: KindString, Tier: types.TierRegistered},
			{Name: "stage", Kind: KindString, Tier: types.TierRegistered},
			{Name: "specificStage", Kind: KindString, Tier: types.TierControlled},
			{Name: "cancerSpecificBiomarkers", Kind: KindString, Tier: types.TierControlled},
			{Name: "sampleCollected", Kind: KindBool, Tier: types.TierRegistered},
		},
	},
	{
		Name:   "treatment",
		Plural: "treatments",
		Fields: []FieldDescriptor{
			{Name: "patientId", Kind: KindString, Tier: types.TierRegistered},
			{Name: "therapeuticModality", Kind: KindString, Tier: types.TierPublic},
			{Name: "treatmentPlanType", Kind: KindString, Tier: types.TierRegistered},
			{Name: "courseNumber", Kind: KindInt, Tier: types.TierRegistered},
			{Name: "startDate", Kind: KindString, Tier: types.TierControlled},
			{Name: "stopDate", Kind: KindString, Tier: types.TierControlled},
			{Name: "responseToTreatment", Kind: KindString, Tier: types.TierControlled},
			{Name: "responseCriteriaUsed", Kind: KindString, Tier: types.TierControlled},
			{Name: "drugListOrAgent", Kind: KindString, Tier: types.TierControlled},
			{Name: "unexpectedOrUnusualToxicityDuringTreatment", Kind: KindString, Tier: types.TierRestricted},
		},
	},
	{
		Name:   "outcome",
		Plural: "outcomes",
		Fields: []FieldDescriptor{
			{Name: "patientId", Kind: KindString, Tier: types.TierRegistered},
			{Name: "dateOfAssessment", Kind: KindString, Tier: types.TierControlled},
			{Name: "diseaseResponseOrStatus", Kind: KindString, Tier: types.TierRegistered},
			{Name: "vitalStatus", Kind: KindString, Tier: types.TierPublic},
			{Name: "heightAtDiagnosis", Kind: KindDouble, Tier: types.TierRestricted},
			{Name: "weightAtDiagnosis", Kind: KindDouble, Tier: types.TierRestricted},
			{Name: "siteOfRelapseOrProgression", Kind: KindString, Tier: types.TierControlled},
			{Name: "intervalProgressionOrRecurrence", Kind: KindString, Tier: types.TierControlled},
			{Name: "survivalInMonths", Kind: KindDouble, Tier: types.TierControlled},
		},
	},
	// Datasets are served through the same federated machinery; their
	// catalog fields carry no tier restrictions.
	{
		Name:   "dataset",
		Plural: "datasets",
		Fields: []FieldDescriptor{},
	},
}

var (
	entitiesByPlural = map[string]*Entity{}
	entitiesByName   = map[string]*Entity{}
)

func init() {
	for _, e := range Entities {
		e.byName = make(map[string]*FieldDescriptor, len(e.Fields))
		for i := range e.Fields {
			e.byName[e.Fields[i].Name] = &e.Fields[i]
		}
		entitiesByPlural[e.Plural] = e
		entitiesByName[e.Name] = e
	}
}

// EntityByPlural resolves a collection name ("patients") to its entity.
func EntityByPlural(plural string) (*Entity, bool) {
	e, ok := entitiesByPlural[strings.ToLower(plural)]
	return e, ok
}

// EntityByName resolves a singular entity name ("patient") to its entity.
func EntityByName(name string) (*Entity, bool) {
	e, ok := entitiesByName[strings.ToLower(name)]
	return e, ok
}
