// Package seed loads demo data for the console: benefits, policies, members,
// claims and operator logins. It feeds the in-memory backend in development
// and can be pushed through any gateway to populate a real store.
package seed

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	catalog "insureadmin/internal/catalog/models"
	claims "insureadmin/internal/claims/models"
	"insureadmin/internal/gateway"
	"insureadmin/internal/session"
	id "insureadmin/pkg/domain"
	dErrors "insureadmin/pkg/domain-errors"
)

const dateLayout = "2006-01-02"

//go:embed default.yaml
var defaultSeed []byte

// File is the decoded seed document.
type File struct {
	Benefits []Benefit `yaml:"benefits"`
	Policies []Policy  `yaml:"policies"`
	Members  []Member  `yaml:"members"`
	Claims   []Claim   `yaml:"claims"`
	Users    []User    `yaml:"users"`
}

type Benefit struct {
	ID        string `yaml:"id"`
	Name      string `yaml:"name"`
	LimitType string `yaml:"limit_type"`
}

type Link struct {
	BenefitID string  `yaml:"benefit_id"`
	Limit     float64 `yaml:"limit"`
}

type Policy struct {
	ID            string   `yaml:"id"`
	Name          string   `yaml:"name"`
	Currency      string   `yaml:"currency"`
	Tier          string   `yaml:"tier"`
	CoverageLimit float64  `yaml:"coverage_limit"`
	Premiums      Premiums `yaml:"premiums"`
	Features      []string `yaml:"features"`
	Benefits      []Link   `yaml:"benefits"`
}

type Premiums struct {
	Adult  float64 `yaml:"adult"`
	Child  float64 `yaml:"child"`
	Senior float64 `yaml:"senior"`
}

type Member struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Status      string `yaml:"status"`
	DateOfBirth string `yaml:"date_of_birth"`
}

type Claim struct {
	ID            string  `yaml:"id"`
	MemberID      string  `yaml:"member_id"`
	ProviderID    string  `yaml:"provider_id"`
	ProviderName  string  `yaml:"provider_name"`
	ServiceDate   string  `yaml:"service_date"`
	Description   string  `yaml:"description"`
	DiagnosisCode string  `yaml:"diagnosis_code"`
	ProcedureCode string  `yaml:"procedure_code"`
	AmountBilled  float64 `yaml:"amount_billed"`
	Status        string  `yaml:"status"`
}

// User is an operator login. PasswordHash is a bcrypt hash; see
// session.HashPassword.
type User struct {
	ID           string `yaml:"id"`
	Email        string `yaml:"email"`
	Name         string `yaml:"name"`
	Role         string `yaml:"role"`
	PasswordHash string `yaml:"password_hash"`
}

// Parse decodes and validates a seed document.
func Parse(data []byte) (*File, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "seed: document is empty")
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "seed: decode document")
	}
	if _, err := f.Dataset(); err != nil {
		return nil, err
	}
	return &f, nil
}

func Load(r io.Reader) (*File, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("seed: read: %w", err)
	}
	return Parse(data)
}

func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("seed: read %s: %w", path, err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("seed: %s: %w", path, err)
	}
	return f, nil
}

// Default returns the built-in demo data.
func Default() *File {
	f, err := Parse(defaultSeed)
	if err != nil {
		panic(fmt.Sprintf("seed: built-in document is invalid: %v", err))
	}
	return f
}

// Dataset is a seed document converted to domain records.
type Dataset struct {
	Benefits []catalog.Benefit
	Policies []catalog.Policy
	Members  []claims.Member
	Claims   []claims.Claim
}

// Dataset converts the document, rejecting anything the console itself
// would refuse to save.
func (f *File) Dataset() (*Dataset, error) {
	ds := &Dataset{}
	for _, b := range f.Benefits {
		benefitID, err := id.ParseBenefitID(b.ID)
		if err != nil {
			return nil, err
		}
		limitType, ok := catalog.ParseLimitType(b.LimitType)
		if !ok {
			return nil, invalid("benefit %s: unknown limit type %q", b.ID, b.LimitType)
		}
		ds.Benefits = append(ds.Benefits, catalog.Benefit{ID: benefitID, Name: b.Name, LimitType: limitType})
	}

	idx := catalog.NewBenefitIndex(ds.Benefits)
	for _, p := range f.Policies {
		policyID, err := id.ParsePolicyID(p.ID)
		if err != nil {
			return nil, err
		}
		policy := catalog.Policy{
			ID:            policyID,
			Name:          strings.TrimSpace(p.Name),
			Currency:      catalog.Currency(strings.ToUpper(p.Currency)),
			Tier:          catalog.Tier(p.Tier),
			CoverageLimit: p.CoverageLimit,
			Premiums:      catalog.Premiums(p.Premiums),
			Features:      p.Features,
		}
		for _, l := range p.Benefits {
			policy.Benefits = append(policy.Benefits, catalog.PolicyBenefitLink{BenefitID: id.BenefitID(l.BenefitID), Limit: l.Limit})
		}
		if err := policy.Validate(); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeValidation, "policy "+p.ID)
		}
		if missing := policy.UnresolvedBenefits(idx); len(missing) > 0 {
			return nil, invalid("policy %s: unknown benefit %s", p.ID, missing[0])
		}
		ds.Policies = append(ds.Policies, policy)
	}

	members := make(map[id.MemberID]claims.Member, len(f.Members))
	for _, m := range f.Members {
		memberID, err := id.ParseMemberID(m.ID)
		if err != nil {
			return nil, err
		}
		member := claims.Member{ID: memberID, Name: m.Name, Status: m.Status}
		if m.DateOfBirth != "" {
			dob, err := time.Parse(dateLayout, m.DateOfBirth)
			if err != nil {
				return nil, invalid("member %s: date_of_birth must be YYYY-MM-DD", m.ID)
			}
			member.DateOfBirth = dob
		}
		members[memberID] = member
		ds.Members = append(ds.Members, member)
	}

	for _, c := range f.Claims {
		claim, err := c.toModel(members)
		if err != nil {
			return nil, err
		}
		ds.Claims = append(ds.Claims, claim)
	}

	for _, u := range f.Users {
		if _, err := u.loginResponse(); err != nil {
			return nil, err
		}
	}
	return ds, nil
}

func (c Claim) toModel(members map[id.MemberID]claims.Member) (claims.Claim, error) {
	claimID, err := id.ParseClaimID(c.ID)
	if err != nil {
		return claims.Claim{}, err
	}
	memberID, err := id.ParseMemberID(c.MemberID)
	if err != nil {
		return claims.Claim{}, err
	}
	member, ok := members[memberID]
	if !ok {
		return claims.Claim{}, invalid("claim %s: unknown member %s", c.ID, c.MemberID)
	}
	status := claims.StatusPending
	if c.Status != "" {
		if status, err = claims.ParseStatus(c.Status); err != nil {
			return claims.Claim{}, err
		}
	}
	claim := claims.Claim{
		ID:            claimID,
		MemberID:      memberID,
		MemberName:    member.Name,
		ProviderID:    id.ProviderID(c.ProviderID),
		ProviderName:  c.ProviderName,
		Description:   c.Description,
		DiagnosisCode: strings.ToUpper(c.DiagnosisCode),
		ProcedureCode: c.ProcedureCode,
		AmountBilled:  c.AmountBilled,
		Status:        status,
	}
	if c.ServiceDate != "" {
		if claim.ServiceDate, err = time.Parse(dateLayout, c.ServiceDate); err != nil {
			return claims.Claim{}, invalid("claim %s: service_date must be YYYY-MM-DD", c.ID)
		}
	}
	return claim, nil
}

func (u User) loginResponse() (session.LoginResponse, error) {
	role := session.BackendRole(strings.ToUpper(strings.TrimSpace(u.Role)))
	if _, err := session.MapRole(role); err != nil {
		return session.LoginResponse{}, invalid("user %s: unknown role %q", u.Email, u.Role)
	}
	if u.PasswordHash == "" {
		return session.LoginResponse{}, invalid("user %s: password_hash is required", u.Email)
	}
	return session.LoginResponse{
		User: session.LoginUser{ID: u.ID, Email: u.Email, Role: role, Name: u.Name},
	}, nil
}

// StaticUsers returns the document's operator logins keyed by email.
func (f *File) StaticUsers() map[string]session.StaticUser {
	users := make(map[string]session.StaticUser, len(f.Users))
	for _, u := range f.Users {
		resp, err := u.loginResponse()
		if err != nil {
			continue
		}
		users[u.Email] = session.StaticUser{PasswordHash: u.PasswordHash, Response: resp}
	}
	return users
}

// Writer stores documents. *gateway.Gateway satisfies it.
type Writer interface {
	CreateOrReplace(ctx context.Context, path string, body any, opts ...gateway.WriteOption) gateway.Result
}

// Apply writes every record through w, stopping at the first refusal.
func (ds *Dataset) Apply(ctx context.Context, w Writer) error {
	put := func(path string, doc any) error {
		res := w.CreateOrReplace(ctx, path, doc)
		if !res.OK() {
			return dErrors.Wrap(res.Err, dErrors.CodeUnavailable,
				fmt.Sprintf("seed %s: %s (status %d)", path, res.Kind, res.Status))
		}
		return nil
	}
	for _, b := range ds.Benefits {
		if err := put("benefits/"+b.ID.String(), b); err != nil {
			return err
		}
	}
	for _, p := range ds.Policies {
		if err := put("policies/"+p.ID.String(), p); err != nil {
			return err
		}
	}
	for _, m := range ds.Members {
		if err := put("members/"+m.ID.String(), m); err != nil {
			return err
		}
	}
	for _, c := range ds.Claims {
		if err := put("claims/"+c.ID.String(), c); err != nil {
			return err
		}
	}
	return nil
}

// LoginHandler answers auth/login for an in-memory backend using the
// document's users.
func (f *File) LoginHandler() func(ctx context.Context, body json.RawMessage) (gateway.Response, error) {
	auth := session.NewStaticAuthenticator(f.StaticUsers())
	return func(ctx context.Context, body json.RawMessage) (gateway.Response, error) {
		var creds session.Credentials
		if err := json.Unmarshal(body, &creds); err != nil {
			return gateway.Response{Status: http.StatusBadRequest}, nil
		}
		resp, err := auth.Authenticate(ctx, creds)
		if err != nil {
			return gateway.Response{Status: http.StatusUnauthorized}, nil
		}
		raw, err := json.Marshal(resp)
		if err != nil {
			return gateway.Response{}, err
		}
		return gateway.Response{Status: http.StatusOK, Body: raw}, nil
	}
}

func invalid(format string, args ...any) error {
	return dErrors.New(dErrors.CodeValidation, "seed: "+fmt.Sprintf(format, args...))
}
