package store

import (
	"path/filepath"

	"github.com/Frankh1982/projectos/internal/project"
)

func (s *Store) profilePath(user string) string       { return filepath.Join(s.UserDir(user), "profile.json") }
func (s *Store) globalFactsMapPath(user string) string { return filepath.Join(s.UserDir(user), "global_facts_map.json") }
func (s *Store) memoryPoliciesPath(user string) string { return filepath.Join(s.UserDir(user), "memory_policies.json") }
func (s *Store) couplesLinksPath(user string) string    { return filepath.Join(s.UserDir(user), "couples_links.json") }

// LoadUserProfile loads the Tier-2G identity kernel document.
func (s *Store) LoadUserProfile(user string) (*project.UserProfile, error) {
	p := &project.UserProfile{Schema: project.UserProfileSchema}
	if err := readJSON(s.profilePath(user), p); err != nil {
		return p, nil
	}
	if p.Schema == "" {
		p.Schema = project.UserProfileSchema
	}
	return p, nil
}

// SaveUserProfile persists the Tier-2G identity kernel document.
func (s *Store) SaveUserProfile(user string, p *project.UserProfile) error {
	if err := s.ensureDir(s.UserDir(user)); err != nil {
		return err
	}
	return writeJSON(s.profilePath(user), p)
}

type globalFactsDoc struct {
	Facts []project.GlobalFact `json:"facts"`
}

// LoadUserGlobalFactsMap loads the Tier-2M compact cross-project snippet.
func (s *Store) LoadUserGlobalFactsMap(user string) ([]project.GlobalFact, error) {
	var d globalFactsDoc
	if err := readJSON(s.globalFactsMapPath(user), &d); err != nil {
		return nil, nil
	}
	return d.Facts, nil
}

// SaveUserGlobalFactsMap persists the Tier-2M document; the distiller is
// the sole writer (mirrors facts_map's single-writer rule at the user scope).
func (s *Store) SaveUserGlobalFactsMap(user string, facts []project.GlobalFact) error {
	if err := s.ensureDir(s.UserDir(user)); err != nil {
		return err
	}
	return writeJSON(s.globalFactsMapPath(user), globalFactsDoc{Facts: facts})
}

type memoryPoliciesDoc struct {
	Rules []project.PolicyRule `json:"rules"`
}

// LoadMemoryPolicies loads the per-user policy-rule set.
func (s *Store) LoadMemoryPolicies(user string) ([]project.PolicyRule, error) {
	var d memoryPoliciesDoc
	if err := readJSON(s.memoryPoliciesPath(user), &d); err != nil {
		return nil, nil
	}
	return d.Rules, nil
}

// SaveMemoryPolicies persists the per-user policy-rule set.
func (s *Store) SaveMemoryPolicies(user string, rules []project.PolicyRule) error {
	if err := s.ensureDir(s.UserDir(user)); err != nil {
		return err
	}
	return writeJSON(s.memoryPoliciesPath(user), memoryPoliciesDoc{Rules: rules})
}

type couplesLinksDoc struct {
	Links map[string]project.CoupleLink `json:"links"`
}

// LoadCouplesLinks loads every couple link keyed by couple_id, scoped
// under the given (therapist) user's directory.
func (s *Store) LoadCouplesLinks(therapistUser string) (map[string]project.CoupleLink, error) {
	var d couplesLinksDoc
	if err := readJSON(s.couplesLinksPath(therapistUser), &d); err != nil {
		return map[string]project.CoupleLink{}, nil
	}
	if d.Links == nil {
		d.Links = map[string]project.CoupleLink{}
	}
	return d.Links, nil
}

// SaveCouplesLinks persists the couple-link map.
func (s *Store) SaveCouplesLinks(therapistUser string, links map[string]project.CoupleLink) error {
	if err := s.ensureDir(s.UserDir(therapistUser)); err != nil {
		return err
	}
	return writeJSON(s.couplesLinksPath(therapistUser), couplesLinksDoc{Links: links})
}
