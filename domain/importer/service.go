package importer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Triaksa-Space/be-admin-console/pkg/apperrors"
	"github.com/Triaksa-Space/be-admin-console/pkg/logger"
	"github.com/Triaksa-Space/be-admin-console/pkg/mailer"
	"github.com/Triaksa-Space/be-admin-console/utils"
	"github.com/google/uuid"
)

const (
	defaultPreviewRows    = 10
	defaultMaxFileSize    = 10 << 20
	defaultRoleName       = "user"
	generatedPasswordSize = 16
)

// Repository is the persistence surface used by imports.
type Repository interface {
	FindByEmails(ctx context.Context, emails []string) (map[string]ExistingUser, error)
	Roles(ctx context.Context) ([]Role, error)
	CreateUser(ctx context.Context, u NewUser) error
	UpdateUser(ctx context.Context, id string, u UserUpdate) error
	RecordJob(ctx context.Context, job Job) error
}

type WelcomeMailer interface {
	SendWelcome(ctx context.Context, msg mailer.WelcomeEmail) error
}

// Archiver keeps a copy of committed uploads.
type Archiver interface {
	Archive(ctx context.Context, filename string, data []byte) (string, error)
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	MaxPasswordLength() int
}

type CacheInvalidator interface {
	Invalidate()
}

// Upload is a received file.
type Upload struct {
	FileName    string
	ContentType string
	Data        []byte
}

type Config struct {
	MaxFileSize int64
	PreviewRows int
}

type Service struct {
	repo      Repository
	validator *Validator
	hasher    PasswordHasher
	mailer    WelcomeMailer
	archiver  Archiver
	cache     CacheInvalidator
	cfg       Config
	log       logger.Logger
}

type Deps struct {
	Repo     Repository
	Hasher   PasswordHasher
	Mailer   WelcomeMailer
	Archiver Archiver
	Cache    CacheInvalidator
	Log      logger.Logger
}

func NewService(deps Deps, cfg Config) *Service {
	if cfg.PreviewRows <= 0 {
		cfg.PreviewRows = defaultPreviewRows
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = defaultMaxFileSize
	}
	log := deps.Log
	if log == nil {
		log = logger.Get()
	}
	var maxPassword int
	if deps.Hasher != nil {
		maxPassword = deps.Hasher.MaxPasswordLength()
	}
	return &Service{
		repo:      deps.Repo,
		validator: NewValidator(maxPassword),
		hasher:    deps.Hasher,
		mailer:    deps.Mailer,
		archiver:  deps.Archiver,
		cache:     deps.Cache,
		cfg:       cfg,
		log:       log.WithComponent("importer"),
	}
}

// MaxFileSize is the configured upload limit in bytes.
func (s *Service) MaxFileSize() int64 {
	return s.cfg.MaxFileSize
}

// Preview parses the upload, suggests a mapping and validates the first
// PreviewRows rows. Rows beyond the sample are counted as valid.
func (s *Service) Preview(ctx context.Context, up Upload, mapping FieldMapping) (*PreviewResponse, error) {
	file, err := s.load(up)
	if err != nil {
		return nil, err
	}

	suggested := SuggestMapping(file.Headers)
	effective, err := s.effectiveMapping(file, mapping, suggested)
	if err != nil {
		return nil, err
	}

	total := len(file.Rows)
	sampleSize := total
	if sampleSize > s.cfg.PreviewRows {
		sampleSize = s.cfg.PreviewRows
	}

	resp := &PreviewResponse{
		Success: true,
		Preview: Preview{
			Headers:     file.Headers,
			Rows:        make([]map[string]interface{}, 0, sampleSize),
			TotalRows:   total,
			PreviewRows: sampleSize,
		},
		Validation: PreviewValidation{
			Errors:        []Issue{},
			Warnings:      []Issue{},
			MissingFields: MissingRequiredFields(effective),
			Estimated:     total > sampleSize,
		},
		SuggestedMapping: suggested,
		Mapping:          effective,
	}

	sampleValid := 0
	for _, row := range file.Rows[:sampleSize] {
		cells := make(map[string]interface{}, len(row.Cells)+1)
		for k, v := range row.Cells {
			cells[k] = v
		}
		cells["_rowNumber"] = row.Number
		resp.Preview.Rows = append(resp.Preview.Rows, cells)

		rec := ApplyMapping(row, effective)
		warns := s.validator.Sanitize(rec, row.Number)
		errs, baseWarns := s.validator.ValidateBase(rec, row.Number)
		resp.Validation.Errors = append(resp.Validation.Errors, errs...)
		resp.Validation.Warnings = append(resp.Validation.Warnings, warns...)
		resp.Validation.Warnings = append(resp.Validation.Warnings, baseWarns...)
		if len(errs) == 0 {
			sampleValid++
		}
	}
	resp.Validation.ValidRows = sampleValid + (total - sampleSize)
	resp.Validation.InvalidRows = sampleSize - sampleValid

	previewsTotal.Inc()
	s.log.Info("Import preview built",
		logger.FileName(up.FileName),
		logger.Int("total_rows", total),
		logger.Int("sample_invalid", resp.Validation.InvalidRows),
	)
	return resp, nil
}

type rowAction int

const (
	actionInvalid rowAction = iota
	actionCreate
	actionUpdate
	actionSkip
)

type rowPlan struct {
	row      Row
	rec      Record
	action   rowAction
	existing ExistingUser
	roleID   string
	hasRole  bool
}

// Commit validates every row, then (unless ValidateOnly) creates, updates or
// skips each one according to opts. Without SkipInvalidRows a single invalid
// row aborts the import before anything is written.
func (s *Service) Commit(ctx context.Context, actorID string, up Upload, mapping FieldMapping, opts Options) (*Response, error) {
	if err := validateOptions(&opts); err != nil {
		return nil, err
	}
	file, err := s.load(up)
	if err != nil {
		return nil, err
	}
	effective, err := s.effectiveMapping(file, mapping, SuggestMapping(file.Headers))
	if err != nil {
		return nil, err
	}

	log := s.log.WithUserID(actorID).WithFields(logger.FileName(up.FileName))
	start := time.Now()
	log.Info("Import started", logger.Int("total_rows", len(file.Rows)), logger.Bool("validate_only", opts.ValidateOnly))

	resp := &Response{
		ValidateOnly: opts.ValidateOnly,
		Summary:      Summary{TotalRows: len(file.Rows)},
		Errors:       []Issue{},
		Warnings:     []Issue{},
	}

	plans, err := s.classify(ctx, file, effective, opts, resp)
	if err != nil {
		return nil, err
	}

	invalid := 0
	for _, p := range plans {
		if p.action == actionInvalid {
			invalid++
		}
	}
	if invalid > 0 && !opts.SkipInvalidRows {
		resp.Summary.InvalidRows = invalid
		resp.Message = fmt.Sprintf("%d of %d row(s) failed validation; nothing was imported", invalid, len(file.Rows))
		observeImport("rejected", resp.Summary)
		log.Warn("Import rejected", logger.Int("invalid_rows", invalid))
		return nil, apperrors.NewBadRequest(apperrors.ErrCodeImportDataInvalid, resp.Message).WithDetails(resp)
	}

	if opts.ValidateOnly {
		for _, p := range plans {
			countAction(&resp.Summary, p.action)
		}
		resp.Success = true
		resp.Message = fmt.Sprintf("Validation finished: %d to create, %d to update, %d to skip, %d invalid",
			resp.Summary.Created, resp.Summary.Updated, resp.Summary.Skipped, resp.Summary.InvalidRows)
		observeImport("validated", resp.Summary)
		return resp, nil
	}

	for _, p := range plans {
		action := p.action
		if action == actionCreate || action == actionUpdate {
			if err := s.persist(ctx, p, opts, resp); err != nil {
				log.Warn("Import row failed", logger.RowNumber(p.row.Number), logger.Err(err))
				resp.Errors = append(resp.Errors, Issue{
					Row:     p.row.Number,
					Field:   FieldEmail,
					Message: "Row could not be saved",
					Code:    apperrors.ErrCodeImportRowFailed,
					Value:   p.rec[FieldEmail],
				})
				action = actionInvalid
			}
		}
		countAction(&resp.Summary, action)
	}

	job := Job{
		ID:          uuid.NewString(),
		ActorID:     actorID,
		FileName:    up.FileName,
		TotalRows:   resp.Summary.TotalRows,
		Created:     resp.Summary.Created,
		Updated:     resp.Summary.Updated,
		Skipped:     resp.Summary.Skipped,
		InvalidRows: resp.Summary.InvalidRows,
	}
	if s.archiver != nil {
		key, err := s.archiver.Archive(ctx, up.FileName, up.Data)
		if err != nil {
			log.Warn("Failed to archive import file", logger.Err(err))
			resp.Warnings = append(resp.Warnings, Issue{Message: "The uploaded file could not be archived"})
		} else {
			job.ArchiveKey = &key
		}
	}
	if err := s.repo.RecordJob(ctx, job); err != nil {
		log.Warn("Failed to record import job", logger.Err(err))
	} else {
		resp.JobID = job.ID
	}

	if resp.Summary.Created+resp.Summary.Updated > 0 && s.cache != nil {
		s.cache.Invalidate()
	}

	resp.Success = true
	resp.Message = fmt.Sprintf("Import finished: %d created, %d updated, %d skipped, %d invalid",
		resp.Summary.Created, resp.Summary.Updated, resp.Summary.Skipped, resp.Summary.InvalidRows)
	observeImport(outcome(resp), resp.Summary)
	log.Info("Import finished",
		logger.Int("created", resp.Summary.Created),
		logger.Int("updated", resp.Summary.Updated),
		logger.Int("skipped", resp.Summary.Skipped),
		logger.Int("invalid_rows", resp.Summary.InvalidRows),
		logger.Duration("duration", time.Since(start)),
	)
	return resp, nil
}

// classify is the validation pass: every row gets an action and its issues
// are appended to resp.
func (s *Service) classify(ctx context.Context, file *File, mapping FieldMapping, opts Options, resp *Response) ([]rowPlan, error) {
	roles, err := s.repo.Roles(ctx)
	if err != nil {
		return nil, apperrors.NewInternal(apperrors.ErrCodeInternal, "Failed to load roles", err)
	}
	roleIDs := make(map[string]string, len(roles)*2)
	for _, r := range roles {
		roleIDs[strings.ToLower(r.Name)] = r.ID
		roleIDs[strings.ToLower(r.ID)] = r.ID
	}

	plans := make([]rowPlan, 0, len(file.Rows))
	var emails []string
	for _, row := range file.Rows {
		rec := ApplyMapping(row, mapping)
		resp.Warnings = append(resp.Warnings, s.validator.Sanitize(rec, row.Number)...)
		if e := NormalizeEmail(rec[FieldEmail]); e != "" {
			rec[FieldEmail] = e
			emails = append(emails, e)
		}
		plans = append(plans, rowPlan{row: row, rec: rec})
	}

	existing, err := s.repo.FindByEmails(ctx, emails)
	if err != nil {
		return nil, apperrors.NewInternal(apperrors.ErrCodeInternal, "Failed to look up existing users", err)
	}

	firstSeen := map[string]int{}
	for i := range plans {
		p := &plans[i]
		n := p.row.Number
		errs, warns := s.validator.ValidateBase(p.rec, n)
		valErrs, valWarns := s.validator.ValidateValues(p.rec, n)
		errs = append(errs, valErrs...)
		warns = append(warns, valWarns...)

		roleName := strings.TrimSpace(p.rec[FieldRole])
		p.hasRole = roleName != ""
		if roleName == "" {
			roleName = opts.DefaultRole
		}
		if roleName == "" {
			roleName = defaultRoleName
		}
		if id, ok := roleIDs[strings.ToLower(roleName)]; ok {
			p.roleID = id
		} else {
			errs = append(errs, Issue{
				Row:     n,
				Field:   FieldRole,
				Message: fmt.Sprintf("Role %q does not exist", roleName),
				Code:    apperrors.ErrCodeInvalidRole,
				Value:   roleName,
			})
		}

		email := p.rec[FieldEmail]
		if email != "" && emailPattern.MatchString(email) {
			if first, dup := firstSeen[email]; dup {
				errs = append(errs, Issue{
					Row:     n,
					Field:   FieldEmail,
					Message: fmt.Sprintf("Email also appears on row %d", first),
					Code:    apperrors.ErrCodeDuplicateEmailInFile,
					Value:   email,
				})
			} else {
				firstSeen[email] = n
			}
		}

		resp.Warnings = append(resp.Warnings, warns...)
		if len(errs) > 0 {
			resp.Errors = append(resp.Errors, errs...)
			p.action = actionInvalid
			continue
		}

		user, exists := existing[email]
		switch {
		case !exists:
			p.action = actionCreate
		case opts.SkipDuplicates:
			p.action = actionSkip
		case opts.UpdateExisting:
			p.action = actionUpdate
			p.existing = user
		default:
			resp.Errors = append(resp.Errors, Issue{
				Row:     n,
				Field:   FieldEmail,
				Message: "A user with this email already exists",
				Code:    apperrors.ErrCodeEmailExists,
				Value:   email,
			})
			p.action = actionInvalid
		}
	}
	return plans, nil
}

func (s *Service) persist(ctx context.Context, p rowPlan, opts Options, resp *Response) error {
	if p.action == actionUpdate {
		upd, err := s.buildUpdate(p, opts)
		if err != nil {
			return err
		}
		return s.repo.UpdateUser(ctx, p.existing.ID, upd)
	}

	password := p.rec[FieldPassword]
	generated := password == ""
	if generated {
		var err error
		if password, err = utils.GeneratePassword(generatedPasswordSize); err != nil {
			return err
		}
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return err
	}

	active := opts.DefaultStatus != "inactive"
	if v, ok := ParseActive(p.rec[FieldIsActive]); ok {
		active = v
	}

	u := NewUser{
		ID:                   uuid.NewString(),
		Email:                p.rec[FieldEmail],
		FirstName:            p.rec[FieldFirstName],
		LastName:             p.rec[FieldLastName],
		Password:             hash,
		RoleID:               p.roleID,
		IsActive:             active,
		Address:              optional(p.rec[FieldAddress]),
		Locale:               optional(p.rec[FieldLocale]),
		Sex:                  optionalSex(p.rec[FieldSex]),
		SlackWebhookURL:      optional(p.rec[FieldSlackWebhookURL]),
		RequirePasswordReset: opts.RequirePasswordReset || generated,
	}
	if b, ok := ParseBirthday(p.rec[FieldBirthday]); ok {
		u.Birthday = &b
	}
	if err := s.repo.CreateUser(ctx, u); err != nil {
		return err
	}

	if opts.SendWelcomeEmail && s.mailer != nil {
		msg := mailer.WelcomeEmail{To: u.Email, FirstName: u.FirstName}
		if generated {
			msg.TemporaryPassword = password
		}
		if err := s.mailer.SendWelcome(ctx, msg); err != nil {
			s.log.Warn("Welcome email failed", logger.RowNumber(p.row.Number), logger.Err(err))
			resp.Warnings = append(resp.Warnings, Issue{
				Row:     p.row.Number,
				Field:   FieldEmail,
				Message: "User created but the welcome email could not be sent",
				Value:   u.Email,
			})
		}
	}
	return nil
}

// buildUpdate only touches columns the row provides; defaultRole and
// defaultStatus are not applied to existing users.
func (s *Service) buildUpdate(p rowPlan, opts Options) (UserUpdate, error) {
	rec := p.rec
	u := UserUpdate{
		FirstName:       optional(rec[FieldFirstName]),
		LastName:        optional(rec[FieldLastName]),
		Address:         optional(rec[FieldAddress]),
		Locale:          optional(rec[FieldLocale]),
		Sex:             optionalSex(rec[FieldSex]),
		SlackWebhookURL: optional(rec[FieldSlackWebhookURL]),
	}
	if p.hasRole {
		u.RoleID = &p.roleID
	}
	if v, ok := ParseActive(rec[FieldIsActive]); ok {
		u.IsActive = &v
	}
	if b, ok := ParseBirthday(rec[FieldBirthday]); ok {
		u.Birthday = &b
	}
	if pw := rec[FieldPassword]; pw != "" {
		hash, err := s.hasher.Hash(pw)
		if err != nil {
			return UserUpdate{}, err
		}
		u.Password = &hash
	}
	if opts.RequirePasswordReset {
		reset := true
		u.RequirePasswordReset = &reset
	}
	return u, nil
}

// load enforces size and format gates, then parses.
func (s *Service) load(up Upload) (*File, error) {
	if int64(len(up.Data)) > s.cfg.MaxFileSize {
		return nil, fileTooLarge(s.cfg.MaxFileSize)
	}
	format, err := DetectFormat(up.FileName, up.ContentType)
	if err != nil {
		return nil, apperrors.NewBadRequest(apperrors.ErrCodeUnsupportedFileFormat,
			"Only CSV, XLS and XLSX files are supported")
	}
	file, err := Parse(format, up.Data)
	switch {
	case errors.Is(err, ErrEmptyData):
		return nil, apperrors.NewBadRequest(apperrors.ErrCodeImportDataInvalid, "The file contains no data rows")
	case errors.Is(err, ErrInvalidFile):
		return nil, apperrors.NewBadRequest(apperrors.ErrCodeImportFileInvalid, "The file could not be read")
	case err != nil:
		return nil, apperrors.NewInternal(apperrors.ErrCodeInternal, "Failed to parse file", err)
	}
	return file, nil
}

func (s *Service) effectiveMapping(file *File, explicit, suggested FieldMapping) (FieldMapping, error) {
	if len(explicit) == 0 {
		return suggested, nil
	}
	if err := ValidateMapping(explicit, file.Headers); err != nil {
		return nil, apperrors.NewBadRequest(apperrors.ErrCodeValidation, err.Error())
	}
	return explicit, nil
}

func fileTooLarge(limit int64) *apperrors.AppError {
	return apperrors.NewBadRequest(apperrors.ErrCodeFileTooLarge,
		fmt.Sprintf("File exceeds the %dMB limit", limit>>20))
}

func validateOptions(opts *Options) error {
	switch strings.ToLower(strings.TrimSpace(opts.DefaultStatus)) {
	case "", "active":
		opts.DefaultStatus = "active"
	case "inactive":
		opts.DefaultStatus = "inactive"
	default:
		return apperrors.NewBadRequest(apperrors.ErrCodeValidation, "defaultStatus must be active or inactive")
	}
	opts.DefaultRole = strings.TrimSpace(opts.DefaultRole)
	return nil
}

func countAction(sum *Summary, a rowAction) {
	switch a {
	case actionCreate:
		sum.Created++
	case actionUpdate:
		sum.Updated++
	case actionSkip:
		sum.Skipped++
	default:
		sum.InvalidRows++
	}
}

func outcome(r *Response) string {
	if r.Summary.InvalidRows == 0 {
		return "success"
	}
	if r.Summary.Created+r.Summary.Updated > 0 {
		return "partial"
	}
	return "failed"
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func optionalSex(s string) *string {
	s = strings.ToLower(strings.TrimSpace(s))
	if !allowedSex[s] {
		return nil
	}
	return &s
}
