package supabase

import (
	"context"
	"errors"
	"fmt"
	"sacrifice-website/models"
	"sacrifice-website/storage"
	"time"
)

// Table names match the SQL schema.
const (
	tableSacrifices   = "sacrifice_animals"
	tableTransactions = "reservation_transactions"
	tableShareholders = "shareholders"
	tableChangeLogs   = "change_logs"
	tableStageMetrics = "stage_metrics"
	tableUsers        = "users"
	tableSessions     = "sessions"
)

// WatchedTables are the tables whose changes the listener forwards to the
// hub. They are the ones the cached stores and the expirer depend on.
var WatchedTables = []string{tableSacrifices, tableTransactions, tableStageMetrics}

const (
	maxCASAttempts = 5
	systemEditor   = "system"
)

// Repository implements storage.Provider on PostgREST. PostgREST has no
// multi-statement transactions, so share counters are updated with
// compare-and-set PATCHes and failed follow-up writes are compensated.
type Repository struct {
	client *Client
	now    func() time.Time
}

var _ storage.Provider = (*Repository)(nil)

func NewRepository(client *Client) *Repository {
	return &Repository{
		client: client,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (r *Repository) Close() error {
	return nil
}

// getOne fetches a single row; a missing row yields (false, nil).
func (r *Repository) getOne(ctx context.Context, q *Query, out any) (bool, error) {
	err := q.Single().Execute(ctx, out)
	if IsCode(err, CodeNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func mapWriteError(err error) error {
	if IsCode(err, CodeUniqueViolation) {
		return storage.ErrDuplicate
	}
	return err
}

// ==================== SACRIFICE OPERATIONS ====================

func (r *Repository) ListSacrifices(ctx context.Context) ([]models.SacrificeAnimal, error) {
	animals := make([]models.SacrificeAnimal, 0)
	if err := r.client.From(tableSacrifices).Select("*").Order("sacrifice_no", true).Execute(ctx, &animals); err != nil {
		return nil, fmt.Errorf("list sacrifices: %w", err)
	}
	return animals, nil
}

func (r *Repository) GetSacrifice(ctx context.Context, sacrificeID string) (*models.SacrificeAnimal, error) {
	var animal models.SacrificeAnimal
	found, err := r.getOne(ctx, r.client.From(tableSacrifices).Select("*").Eq("sacrifice_id", sacrificeID), &animal)
	if err != nil {
		return nil, fmt.Errorf("get sacrifice: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &animal, nil
}

func (r *Repository) CreateSacrifice(ctx context.Context, animal *models.SacrificeAnimal) error {
	if animal.LastEditedTime.IsZero() {
		animal.LastEditedTime = r.now()
	}
	if err := r.client.From(tableSacrifices).Insert(animal).Execute(ctx, nil); err != nil {
		return fmt.Errorf("create sacrifice: %w", mapWriteError(err))
	}
	return nil
}

func (r *Repository) UpdateSacrifice(ctx context.Context, animal *models.SacrificeAnimal) error {
	animal.LastEditedTime = r.now()

	var rows []models.SacrificeAnimal
	err := r.client.From(tableSacrifices).
		Eq("sacrifice_id", animal.ID).
		Update(map[string]any{
			"sacrifice_time":   animal.Time,
			"share_price":      animal.SharePrice,
			"notes":            animal.Notes,
			"last_edited_by":   animal.LastEditedBy,
			"last_edited_time": animal.LastEditedTime,
		}).
		Execute(ctx, &rows)
	if err != nil {
		return fmt.Errorf("update sacrifice: %w", err)
	}
	if len(rows) == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (r *Repository) DeleteSacrifice(ctx context.Context, sacrificeID string) error {
	var holders []struct {
		ID string `json:"shareholder_id"`
	}
	err := r.client.From(tableShareholders).Select("shareholder_id").Eq("sacrifice_id", sacrificeID).Limit(1).Execute(ctx, &holders)
	if err != nil {
		return fmt.Errorf("count shareholders: %w", err)
	}
	if len(holders) > 0 {
		return storage.ErrHasShareholders
	}

	var rows []models.SacrificeAnimal
	if err := r.client.From(tableSacrifices).Eq("sacrifice_id", sacrificeID).Delete().Execute(ctx, &rows); err != nil {
		return fmt.Errorf("delete sacrifice: %w", err)
	}
	if len(rows) == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (r *Repository) SetEmptyShare(ctx context.Context, sacrificeID string, emptyShare int, editor string) error {
	var rows []models.SacrificeAnimal
	err := r.client.From(tableSacrifices).
		Eq("sacrifice_id", sacrificeID).
		Update(map[string]any{
			"empty_share":      emptyShare,
			"last_edited_by":   editor,
			"last_edited_time": r.now(),
		}).
		Execute(ctx, &rows)
	if err != nil {
		return fmt.Errorf("set empty share: %w", err)
	}
	if len(rows) == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// adjustShares adds delta to empty_share with a compare-and-set loop. A
// negative delta fails with ErrInsufficientShares; a positive one is capped.
func (r *Repository) adjustShares(ctx context.Context, sacrificeID string, delta int, editor string) error {
	for attempt := 0; attempt < maxCASAttempts; attempt++ {
		animal, err := r.GetSacrifice(ctx, sacrificeID)
		if err != nil {
			return err
		}
		if animal == nil {
			return storage.ErrNotFound
		}

		next := animal.EmptyShare + delta
		if next < 0 {
			return storage.ErrInsufficientShares
		}
		if next > models.MaxSharesPerAnimal {
			next = models.MaxSharesPerAnimal
		}

		var rows []models.SacrificeAnimal
		err = r.client.From(tableSacrifices).
			Eq("sacrifice_id", sacrificeID).
			Eq("empty_share", animal.EmptyShare).
			Update(map[string]any{
				"empty_share":      next,
				"last_edited_by":   editor,
				"last_edited_time": r.now(),
			}).
			Execute(ctx, &rows)
		if err != nil {
			return fmt.Errorf("adjust shares: %w", err)
		}
		if len(rows) == 1 {
			return nil
		}
	}
	return storage.ErrConcurrentUpdate
}

// ==================== RESERVATION OPERATIONS ====================

func (r *Repository) ReserveShares(ctx context.Context, t *models.ReservationTransaction) error {
	now := r.now()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.LastEditedTime = now
	if t.Status == "" {
		t.Status = models.ReservationActive
	}

	if err := r.adjustShares(ctx, t.SacrificeID, -t.ShareCount, systemEditor); err != nil {
		return err
	}

	if err := r.client.From(tableTransactions).Insert(t).Execute(ctx, nil); err != nil {
		if cErr := r.adjustShares(ctx, t.SacrificeID, t.ShareCount, systemEditor); cErr != nil {
			return fmt.Errorf("insert transaction: %w (compensation failed: %v)", mapWriteError(err), cErr)
		}
		return fmt.Errorf("insert transaction: %w", mapWriteError(err))
	}
	return nil
}

func (r *Repository) GetTransaction(ctx context.Context, transactionID string) (*models.ReservationTransaction, error) {
	var t models.ReservationTransaction
	found, err := r.getOne(ctx, r.client.From(tableTransactions).Select("*").Eq("transaction_id", transactionID), &t)
	if err != nil {
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &t, nil
}

// setStatus moves a transaction from one status to another only if it is
// still in the expected one.
func (r *Repository) setStatus(ctx context.Context, transactionID string, from, to models.ReservationStatus) (*models.ReservationTransaction, error) {
	var rows []models.ReservationTransaction
	err := r.client.From(tableTransactions).
		Eq("transaction_id", transactionID).
		Eq("status", from).
		Update(map[string]any{
			"status":           to,
			"last_edited_time": r.now(),
		}).
		Execute(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("update transaction status: %w", err)
	}
	if len(rows) == 1 {
		return &rows[0], nil
	}

	current, err := r.GetTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, storage.ErrNotFound
	}
	return current, storage.ErrStatusConflict
}

func (r *Repository) TransitionTransaction(ctx context.Context, transactionID string, to models.ReservationStatus) (*models.ReservationTransaction, error) {
	if !to.Terminal() {
		return nil, fmt.Errorf("transition to %q: %w", to, storage.ErrStatusConflict)
	}

	t, err := r.setStatus(ctx, transactionID, models.ReservationActive, to)
	if err != nil {
		return t, err
	}

	if to.Releases() {
		if err := r.adjustShares(ctx, t.SacrificeID, t.ShareCount, systemEditor); err != nil {
			// Reopen the reservation so the expirer or a retried cancel releases it again
			if _, rbErr := r.setStatus(ctx, transactionID, to, models.ReservationActive); rbErr != nil {
				return nil, fmt.Errorf("release shares: %w (rollback failed: %v)", err, rbErr)
			}
			return nil, fmt.Errorf("release shares: %w", err)
		}
	}
	return t, nil
}

type shareholderRow struct {
	models.Shareholder
	SecurityCode string `json:"security_code"`
}

func toRows(holders []models.Shareholder) []shareholderRow {
	rows := make([]shareholderRow, len(holders))
	for i, sh := range holders {
		rows[i] = shareholderRow{Shareholder: sh, SecurityCode: sh.SecurityCode}
	}
	return rows
}

func fromRows(rows []shareholderRow) []models.Shareholder {
	holders := make([]models.Shareholder, len(rows))
	for i, row := range rows {
		holders[i] = row.Shareholder
		holders[i].SecurityCode = row.SecurityCode
	}
	return holders
}

func (r *Repository) CompleteTransaction(ctx context.Context, transactionID string, shareholders []models.Shareholder) (*models.ReservationTransaction, error) {
	t, err := r.setStatus(ctx, transactionID, models.ReservationActive, models.ReservationCompleted)
	if err != nil {
		return t, err
	}

	now := r.now()
	for i := range shareholders {
		if shareholders[i].PurchaseTime.IsZero() {
			shareholders[i].PurchaseTime = now
		}
		shareholders[i].LastEditedTime = now
	}

	if len(shareholders) > 0 {
		if err := r.client.From(tableShareholders).Insert(toRows(shareholders)).Execute(ctx, nil); err != nil {
			// Put the reservation back so the buyer can retry before it expires
			if _, rbErr := r.setStatus(ctx, transactionID, models.ReservationCompleted, models.ReservationActive); rbErr != nil {
				return nil, fmt.Errorf("insert shareholders: %w (rollback failed: %v)", mapWriteError(err), rbErr)
			}
			return nil, fmt.Errorf("insert shareholders: %w", mapWriteError(err))
		}
	}
	return t, nil
}

func (r *Repository) ListOverdueTransactions(ctx context.Context, now time.Time, limit int) ([]models.ReservationTransaction, error) {
	if limit <= 0 {
		limit = 100
	}
	txs := make([]models.ReservationTransaction, 0)
	err := r.client.From(tableTransactions).
		Select("*").
		Eq("status", models.ReservationActive).
		Lt("expires_at", now).
		Order("expires_at", true).
		Limit(limit).
		Execute(ctx, &txs)
	if err != nil {
		return nil, fmt.Errorf("list overdue transactions: %w", err)
	}
	return txs, nil
}

func (r *Repository) PurgeTransactions(ctx context.Context, before time.Time) (int64, error) {
	var rows []struct {
		ID string `json:"transaction_id"`
	}
	err := r.client.From(tableTransactions).
		In("status", models.ReservationCompleted, models.ReservationCanceled, models.ReservationExpired).
		Lt("last_edited_time", before).
		Select("transaction_id").
		Delete().
		Execute(ctx, &rows)
	if err != nil {
		return 0, fmt.Errorf("purge transactions: %w", err)
	}
	return int64(len(rows)), nil
}

// ==================== SHAREHOLDER OPERATIONS ====================

func (r *Repository) ListShareholders(ctx context.Context, filter models.ShareholderFilter) ([]models.Shareholder, error) {
	q := r.client.From(tableShareholders).Select("*")
	if filter.SacrificeID != "" {
		q.Eq("sacrifice_id", filter.SacrificeID)
	}
	if filter.PhoneNumber != "" {
		q.Eq("phone_number", filter.PhoneNumber)
	}
	if filter.Unpaid {
		q.Gt("remaining_payment", 0)
	}
	q.Order("purchase_time", false).Order("shareholder_id", true)
	if filter.Limit > 0 {
		q.Limit(filter.Limit).Offset(filter.Offset)
	}

	rows := make([]shareholderRow, 0)
	if err := q.Execute(ctx, &rows); err != nil {
		return nil, fmt.Errorf("list shareholders: %w", err)
	}
	return fromRows(rows), nil
}

func (r *Repository) GetShareholder(ctx context.Context, shareholderID string) (*models.Shareholder, error) {
	var row shareholderRow
	found, err := r.getOne(ctx, r.client.From(tableShareholders).Select("*").Eq("shareholder_id", shareholderID), &row)
	if err != nil {
		return nil, fmt.Errorf("get shareholder: %w", err)
	}
	if !found {
		return nil, nil
	}
	sh := fromRows([]shareholderRow{row})[0]
	return &sh, nil
}

func (r *Repository) UpdateShareholder(ctx context.Context, sh *models.Shareholder) error {
	sh.LastEditedTime = r.now()

	var rows []shareholderRow
	err := r.client.From(tableShareholders).
		Eq("shareholder_id", sh.ID).
		Update(map[string]any{
			"shareholder_name":  sh.Name,
			"phone_number":      sh.PhoneNumber,
			"delivery_type":     sh.DeliveryType,
			"delivery_location": sh.DeliveryLocation,
			"delivery_fee":      sh.DeliveryFee,
			"total_amount":      sh.TotalAmount,
			"paid_amount":       sh.PaidAmount,
			"remaining_payment": sh.RemainingPayment,
			"sacrifice_consent": sh.SacrificeConsent,
			"contact_consent":   sh.ContactConsent,
			"notes":             sh.Notes,
			"last_edited_by":    sh.LastEditedBy,
			"last_edited_time":  sh.LastEditedTime,
		}).
		Execute(ctx, &rows)
	if err != nil {
		return fmt.Errorf("update shareholder: %w", err)
	}
	if len(rows) == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (r *Repository) DeleteShareholder(ctx context.Context, shareholderID, editor string) error {
	var rows []shareholderRow
	if err := r.client.From(tableShareholders).Eq("shareholder_id", shareholderID).Delete().Execute(ctx, &rows); err != nil {
		return fmt.Errorf("delete shareholder: %w", err)
	}
	if len(rows) == 0 {
		return storage.ErrNotFound
	}

	err := r.adjustShares(ctx, rows[0].SacrificeID, 1, editor)
	if err == nil || errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	// Restore the row so the share is not lost between the two writes
	if rbErr := r.client.From(tableShareholders).Insert(rows).Execute(ctx, nil); rbErr != nil {
		return fmt.Errorf("release share: %w (rollback failed: %v)", err, rbErr)
	}
	return fmt.Errorf("release share: %w", err)
}

// ==================== CHANGE LOG OPERATIONS ====================

func (r *Repository) InsertChangeLogs(ctx context.Context, logs []models.ChangeLog) error {
	if len(logs) == 0 {
		return nil
	}
	for i := range logs {
		if logs[i].ChangedAt.IsZero() {
			logs[i].ChangedAt = r.now()
		}
	}
	if err := r.client.From(tableChangeLogs).Insert(logs).Execute(ctx, nil); err != nil {
		return fmt.Errorf("insert change logs: %w", err)
	}
	return nil
}

func (r *Repository) ListChangeLogs(ctx context.Context, filter models.ChangeLogFilter) ([]models.ChangeLog, error) {
	q := r.client.From(tableChangeLogs).Select("*")
	if filter.TableName != "" {
		q.Eq("table_name", filter.TableName)
	}
	if filter.RowID != "" {
		q.Eq("row_id", filter.RowID)
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	q.Order("changed_at", false).Order("event_id", true).Limit(limit).Offset(filter.Offset)

	logs := make([]models.ChangeLog, 0)
	if err := q.Execute(ctx, &logs); err != nil {
		return nil, fmt.Errorf("list change logs: %w", err)
	}
	return logs, nil
}

// ==================== STAGE OPERATIONS ====================

func (r *Repository) ListStageMetrics(ctx context.Context) ([]models.StageMetric, error) {
	var rows []models.StageMetric
	if err := r.client.From(tableStageMetrics).Select("*").Execute(ctx, &rows); err != nil {
		return nil, fmt.Errorf("list stage metrics: %w", err)
	}

	byStage := make(map[models.Stage]models.StageMetric, len(rows))
	for _, m := range rows {
		byStage[m.Stage] = m
	}
	metrics := make([]models.StageMetric, 0, len(models.Stages))
	for _, s := range models.Stages {
		if m, ok := byStage[s]; ok {
			metrics = append(metrics, m)
		}
	}
	return metrics, nil
}

func (r *Repository) GetStageMetric(ctx context.Context, stage models.Stage) (*models.StageMetric, error) {
	var m models.StageMetric
	found, err := r.getOne(ctx, r.client.From(tableStageMetrics).Select("*").Eq("stage", stage), &m)
	if err != nil {
		return nil, fmt.Errorf("get stage metric: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &m, nil
}

// SaveStageMetric writes m only while the stored counter still equals
// expected, so two concurrent advances cannot both win.
func (r *Repository) SaveStageMetric(ctx context.Context, m *models.StageMetric, expected int) error {
	m.UpdatedAt = r.now()
	var rows []models.StageMetric
	err := r.client.From(tableStageMetrics).
		Eq("stage", m.Stage).
		Eq("current_sacrifice_number", expected).
		Update(map[string]any{
			"current_sacrifice_number": m.CurrentSacrificeNumber,
			"avg_progress_duration":    m.AvgProgressDuration,
			"updated_at":               m.UpdatedAt,
		}).
		Execute(ctx, &rows)
	if err != nil {
		return fmt.Errorf("save stage metric: %w", err)
	}
	if len(rows) == 1 {
		return nil
	}

	current, err := r.GetStageMetric(ctx, m.Stage)
	if err != nil {
		return err
	}
	if current != nil {
		return storage.ErrConcurrentUpdate
	}
	if err := r.client.From(tableStageMetrics).Insert(m).Execute(ctx, nil); err != nil {
		if IsCode(err, CodeUniqueViolation) {
			return storage.ErrConcurrentUpdate
		}
		return fmt.Errorf("save stage metric: %w", err)
	}
	return nil
}

// ==================== USER OPERATIONS ====================

func (r *Repository) GetUser(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	found, err := r.getOne(ctx, r.client.From(tableUsers).Select("*").Eq("id", userID), &user)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &user, nil
}

func (r *Repository) ListUsers(ctx context.Context) ([]models.User, error) {
	users := make([]models.User, 0)
	if err := r.client.From(tableUsers).Select("*").Order("created_at", true).Execute(ctx, &users); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// UpsertUser inserts the user if new, then refreshes profile fields only.
func (r *Repository) UpsertUser(ctx context.Context, user *models.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = r.now()
	}
	if err := r.client.From(tableUsers).InsertIgnore(user, "id").Execute(ctx, nil); err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	err := r.client.From(tableUsers).
		Eq("id", user.ID).
		Update(map[string]any{"email": user.Email, "name": user.Name, "image": user.Image}).
		Execute(ctx, nil)
	if err != nil {
		return fmt.Errorf("refresh user profile: %w", err)
	}
	return nil
}

func (r *Repository) UpdateUser(ctx context.Context, user *models.User) error {
	var rows []models.User
	err := r.client.From(tableUsers).
		Eq("id", user.ID).
		Update(map[string]any{"role": user.Role, "status": user.Status}).
		Execute(ctx, &rows)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if len(rows) == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ==================== SESSION OPERATIONS ====================

type sessionRow struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	ExpiresAt  time.Time `json:"expires_at"`
	CreatedAt  time.Time `json:"created_at"`
	LastUsedAt time.Time `json:"last_used_at"`
}

func (r *Repository) CreateSession(ctx context.Context, session *models.Session) error {
	now := r.now()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.LastUsedAt = now

	row := sessionRow{
		ID:         session.ID,
		UserID:     session.UserID,
		ExpiresAt:  session.ExpiresAt.UTC(),
		CreatedAt:  session.CreatedAt,
		LastUsedAt: session.LastUsedAt,
	}
	if err := r.client.From(tableSessions).Insert(row).Execute(ctx, nil); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (r *Repository) GetSession(ctx context.Context, sessionID string) (*models.Session, error) {
	var row struct {
		sessionRow
		User *models.User `json:"users"`
	}
	q := r.client.From(tableSessions).
		Select("id,user_id,expires_at,created_at,last_used_at,users(email,name,role,status)").
		Eq("id", sessionID)
	found, err := r.getOne(ctx, q, &row)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if !found || row.User == nil {
		return nil, nil
	}

	return &models.Session{
		ID:         row.ID,
		UserID:     row.UserID,
		Email:      row.User.Email,
		Name:       row.User.Name,
		Role:       row.User.Role,
		Status:     row.User.Status,
		ExpiresAt:  row.ExpiresAt,
		CreatedAt:  row.CreatedAt,
		LastUsedAt: row.LastUsedAt,
	}, nil
}

func (r *Repository) TouchSession(ctx context.Context, sessionID string, at time.Time) error {
	err := r.client.From(tableSessions).
		Eq("id", sessionID).
		Update(map[string]any{"last_used_at": at.UTC()}).
		Execute(ctx, nil)
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	return nil
}

func (r *Repository) DeleteSession(ctx context.Context, sessionID string) error {
	if err := r.client.From(tableSessions).Eq("id", sessionID).Delete().Execute(ctx, nil); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (r *Repository) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	var rows []struct {
		ID string `json:"id"`
	}
	err := r.client.From(tableSessions).Lt("expires_at", now).Select("id").Delete().Execute(ctx, &rows)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return int64(len(rows)), nil
}
