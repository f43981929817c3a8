package common_test

import (
	"context"
	"sync"
	"testing"
	"time"
	"veeniu/src/common"
	"veeniu/src/db"
	"veeniu/src/lib"
	"veeniu/src/models"
	"veeniu/src/types"

	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type noopMailer struct{}

func (noopMailer) Send(input *lib.SendMailInput) error { return nil }

type memArtifactStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	removed []string
}

func newMemArtifactStore() *memArtifactStore {
	return &memArtifactStore{objects: map[string][]byte{}}
}

func (s *memArtifactStore) Store(ctx context.Context, key string, body []byte, contentType string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = body
	return key, nil
}

func (s *memArtifactStore) Remove(ctx context.Context, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, ref)
	s.removed = append(s.removed, ref)
	return nil
}

func (s *memArtifactStore) has(ref string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[ref]
	return ok
}

type TransactionsTestSuite struct {
	suite.Suite
	gdb   *gorm.DB
	store *memArtifactStore
}

func (s *TransactionsTestSuite) SetupTest() {
	gdb, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	s.Require().NoError(err)
	sqlDB, err := gdb.DB()
	s.Require().NoError(err)
	sqlDB.SetMaxOpenConns(1)

	err = gdb.AutoMigrate(
		&models.User{},
		&models.Event{},
		&models.Ticket{},
		&models.Voucher{},
		&models.Transaction{},
		&models.TransactionDetail{},
		&models.Reward{},
		&models.EventAttendee{},
		&models.Review{},
		&models.JobTask{},
	)
	s.Require().NoError(err)

	db.NewDB(gdb)
	s.gdb = gdb
	s.store = newMemArtifactStore()
	lib.NewArtifactStore(s.store)
	lib.NewMailer(noopMailer{})
}

func (s *TransactionsTestSuite) createUser(email string, role types.Role) *models.User {
	user := models.User{Name: "user", Email: email, Password: "x", Role: role, ReferralCode: email}
	s.Require().NoError(s.gdb.Create(&user).Error)
	return &user
}

func (s *TransactionsTestSuite) createEvent(organizerID uint, title string) *models.Event {
	event := models.Event{
		OrganizerID: organizerID,
		Title:       title,
		Slug:        title,
		Location:    "somewhere",
		StartsAt:    time.Now().Add(48 * time.Hour),
		EndsAt:      time.Now().Add(52 * time.Hour),
	}
	s.Require().NoError(s.gdb.Create(&event).Error)
	return &event
}

func (s *TransactionsTestSuite) createTicket(eventID uint, price int64, stock int) *models.Ticket {
	ticket := models.Ticket{EventID: eventID, Name: "GA", Price: price, Stock: stock}
	s.Require().NoError(s.gdb.Create(&ticket).Error)
	return &ticket
}

func (s *TransactionsTestSuite) grantPoints(userID uint, points int64) {
	reward := models.Reward{UserID: userID, Point: points}
	s.Require().NoError(s.gdb.Create(&reward).Error)
}

func (s *TransactionsTestSuite) ticketStock(ticketID uint) int {
	var ticket models.Ticket
	s.Require().NoError(s.gdb.First(&ticket, ticketID).Error)
	return ticket.Stock
}

func (s *TransactionsTestSuite) reload(txn *models.Transaction) *models.Transaction {
	var fresh models.Transaction
	s.Require().NoError(s.gdb.First(&fresh, txn.ID).Error)
	return &fresh
}

func (s *TransactionsTestSuite) apiErrorKind(err error) types.ErrorKind {
	s.Require().Error(err)
	return types.AsApiError(err).Kind
}

func (s *TransactionsTestSuite) TestCreateReservesStockAtomically() {
	organizer := s.createUser("org@test.dev", types.ROLE_ORGANIZER)
	buyer := s.createUser("buyer@test.dev", types.ROLE_CUSTOMER)
	event := s.createEvent(organizer.ID, "concert")
	ticket := s.createTicket(event.ID, 100, 10)

	txn, err := common.CreateTransaction(&types.CreateTransactionRequestBody{
		Items: []types.TransactionItem{{TicketID: ticket.ID, Qty: 3}},
		Email: buyer.Email,
	}, buyer.ID)
	s.Require().NoError(err)

	s.Equal(types.TRANSACTION_WAITING_FOR_PAYMENT, txn.Status)
	s.Equal(int64(300), txn.TotalAmount)
	s.Equal(int64(0), txn.DiscountAmount)
	s.Equal(int64(300), txn.FinalAmount)
	s.True(txn.ExpiresAt.After(time.Now()))
	s.Equal(7, s.ticketStock(ticket.ID))

	var details []models.TransactionDetail
	s.Require().NoError(s.gdb.Where("transaction_id = ?", txn.ID).Find(&details).Error)
	s.Require().Len(details, 1)
	s.Equal(int64(100), details[0].Price)
	s.Equal(3, details[0].Qty)

	var jobTask models.JobTask
	err = s.gdb.Where(&models.JobTask{Topic: common.ExpiryTopic}).First(&jobTask).Error
	s.Require().NoError(err)
	s.Equal("pending", jobTask.Status)
	s.Equal(txn.UUID.String(), jobTask.Payload["uuid"])
}

func (s *TransactionsTestSuite) TestCreateRefusesOversell() {
	organizer := s.createUser("org@test.dev", types.ROLE_ORGANIZER)
	buyer := s.createUser("buyer@test.dev", types.ROLE_CUSTOMER)
	event := s.createEvent(organizer.ID, "concert")
	ticket := s.createTicket(event.ID, 100, 2)

	_, err := common.CreateTransaction(&types.CreateTransactionRequestBody{
		Items: []types.TransactionItem{{TicketID: ticket.ID, Qty: 3}},
		Email: buyer.Email,
	}, buyer.ID)
	s.Equal(types.ERR_CONFLICT, s.apiErrorKind(err))
	s.Equal(2, s.ticketStock(ticket.ID))

	var count int64
	s.Require().NoError(s.gdb.Model(&models.Transaction{}).Count(&count).Error)
	s.Zero(count)
}

func (s *TransactionsTestSuite) TestSequentialBuyersCannotBothTakeLastSeat() {
	organizer := s.createUser("org@test.dev", types.ROLE_ORGANIZER)
	first := s.createUser("first@test.dev", types.ROLE_CUSTOMER)
	second := s.createUser("second@test.dev", types.ROLE_CUSTOMER)
	event := s.createEvent(organizer.ID, "concert")
	ticket := s.createTicket(event.ID, 100, 1)

	_, err := common.CreateTransaction(&types.CreateTransactionRequestBody{
		Items: []types.TransactionItem{{TicketID: ticket.ID, Qty: 1}},
		Email: first.Email,
	}, first.ID)
	s.Require().NoError(err)

	_, err = common.CreateTransaction(&types.CreateTransactionRequestBody{
		Items: []types.TransactionItem{{TicketID: ticket.ID, Qty: 1}},
		Email: second.Email,
	}, second.ID)
	s.Equal(types.ERR_CONFLICT, s.apiErrorKind(err))
	s.Equal(0, s.ticketStock(ticket.ID))
}

func (s *TransactionsTestSuite) TestCreateUnknownTicket() {
	buyer := s.createUser("buyer@test.dev", types.ROLE_CUSTOMER)

	_, err := common.CreateTransaction(&types.CreateTransactionRequestBody{
		Items: []types.TransactionItem{{TicketID: 999, Qty: 1}},
		Email: buyer.Email,
	}, buyer.ID)
	s.Equal(types.ERR_NOT_FOUND, s.apiErrorKind(err))
}

func (s *TransactionsTestSuite) TestCreateRejectsMixedEvents() {
	organizer := s.createUser("org@test.dev", types.ROLE_ORGANIZER)
	buyer := s.createUser("buyer@test.dev", types.ROLE_CUSTOMER)
	eventA := s.createEvent(organizer.ID, "concert-a")
	eventB := s.createEvent(organizer.ID, "concert-b")
	ticketA := s.createTicket(eventA.ID, 100, 5)
	ticketB := s.createTicket(eventB.ID, 100, 5)

	_, err := common.CreateTransaction(&types.CreateTransactionRequestBody{
		Items: []types.TransactionItem{
			{TicketID: ticketA.ID, Qty: 1},
			{TicketID: ticketB.ID, Qty: 1},
		},
		Email: buyer.Email,
	}, buyer.ID)
	s.Equal(types.ERR_VALIDATION, s.apiErrorKind(err))
	s.Equal(5, s.ticketStock(ticketA.ID))
	s.Equal(5, s.ticketStock(ticketB.ID))
}

func (s *TransactionsTestSuite) TestVoucherDiscount() {
	organizer := s.createUser("org@test.dev", types.ROLE_ORGANIZER)
	buyer := s.createUser("buyer@test.dev", types.ROLE_CUSTOMER)
	event := s.createEvent(organizer.ID, "concert")
	ticket := s.createTicket(event.ID, 100, 5)
	voucher := models.Voucher{EventID: event.ID, Code: "SAVE50", Value: 50, ExpiresAt: time.Now().Add(24 * time.Hour)}
	s.Require().NoError(s.gdb.Create(&voucher).Error)

	txn, err := common.CreateTransaction(&types.CreateTransactionRequestBody{
		Items:     []types.TransactionItem{{TicketID: ticket.ID, Qty: 2}},
		VoucherID: &voucher.ID,
		Email:     buyer.Email,
	}, buyer.ID)
	s.Require().NoError(err)
	s.Equal(int64(200), txn.TotalAmount)
	s.Equal(int64(50), txn.DiscountAmount)
	s.Equal(int64(150), txn.FinalAmount)
	s.Require().NotNil(txn.UsedVoucherID)
	s.Equal(voucher.ID, *txn.UsedVoucherID)
}

func (s *TransactionsTestSuite) TestVoucherScopedToEvent() {
	organizer := s.createUser("org@test.dev", types.ROLE_ORGANIZER)
	buyer := s.createUser("buyer@test.dev", types.ROLE_CUSTOMER)
	eventA := s.createEvent(organizer.ID, "concert-a")
	eventB := s.createEvent(organizer.ID, "concert-b")
	ticket := s.createTicket(eventA.ID, 100, 5)
	voucher := models.Voucher{EventID: eventB.ID, Code: "OTHER", Value: 50, ExpiresAt: time.Now().Add(24 * time.Hour)}
	s.Require().NoError(s.gdb.Create(&voucher).Error)

	_, err := common.CreateTransaction(&types.CreateTransactionRequestBody{
		Items:     []types.TransactionItem{{TicketID: ticket.ID, Qty: 1}},
		VoucherID: &voucher.ID,
		Email:     buyer.Email,
	}, buyer.ID)
	s.Equal(types.ERR_VALIDATION, s.apiErrorKind(err))
	s.Equal(5, s.ticketStock(ticket.ID))
}

func (s *TransactionsTestSuite) TestExpiredVoucherRefused() {
	organizer := s.createUser("org@test.dev", types.ROLE_ORGANIZER)
	buyer := s.createUser("buyer@test.dev", types.ROLE_CUSTOMER)
	event := s.createEvent(organizer.ID, "concert")
	ticket := s.createTicket(event.ID, 100, 5)
	voucher := models.Voucher{EventID: event.ID, Code: "LATE", Value: 50, ExpiresAt: time.Now().Add(-time.Hour)}
	s.Require().NoError(s.gdb.Create(&voucher).Error)

	_, err := common.CreateTransaction(&types.CreateTransactionRequestBody{
		Items:     []types.TransactionItem{{TicketID: ticket.ID, Qty: 1}},
		VoucherID: &voucher.ID,
		Email:     buyer.Email,
	}, buyer.ID)
	s.Equal(types.ERR_VALIDATION, s.apiErrorKind(err))
}

func (s *TransactionsTestSuite) TestPointsRedemption() {
	organizer := s.createUser("org@test.dev", types.ROLE_ORGANIZER)
	buyer := s.createUser("buyer@test.dev", types.ROLE_CUSTOMER)
	event := s.createEvent(organizer.ID, "concert")
	ticket := s.createTicket(event.ID, 100, 5)
	s.grantPoints(buyer.ID, 30)

	txn, err := common.CreateTransaction(&types.CreateTransactionRequestBody{
		Items:     []types.TransactionItem{{TicketID: ticket.ID, Qty: 1}},
		UsePoints: 30,
		Email:     buyer.Email,
	}, buyer.ID)
	s.Require().NoError(err)
	s.Equal(int64(30), txn.DiscountAmount)
	s.Equal(int64(70), txn.FinalAmount)

	balance, err := common.PointsBalance(s.gdb, buyer.ID)
	s.Require().NoError(err)
	s.Equal(int64(0), balance)
}

func (s *TransactionsTestSuite) TestPointsOverdraftRefused() {
	organizer := s.createUser("org@test.dev", types.ROLE_ORGANIZER)
	buyer := s.createUser("buyer@test.dev", types.ROLE_CUSTOMER)
	event := s.createEvent(organizer.ID, "concert")
	ticket := s.createTicket(event.ID, 100, 5)
	s.grantPoints(buyer.ID, 30)

	_, err := common.CreateTransaction(&types.CreateTransactionRequestBody{
		Items:     []types.TransactionItem{{TicketID: ticket.ID, Qty: 1}},
		UsePoints: 31,
		Email:     buyer.Email,
	}, buyer.ID)
	s.Equal(types.ERR_VALIDATION, s.apiErrorKind(err))

	balance, err := common.PointsBalance(s.gdb, buyer.ID)
	s.Require().NoError(err)
	s.Equal(int64(30), balance)
}

func (s *TransactionsTestSuite) TestDiscountExceedingTotalRefused() {
	organizer := s.createUser("org@test.dev", types.ROLE_ORGANIZER)
	buyer := s.createUser("buyer@test.dev", types.ROLE_CUSTOMER)
	event := s.createEvent(organizer.ID, "concert")
	ticket := s.createTicket(event.ID, 100, 5)
	voucher := models.Voucher{EventID: event.ID, Code: "TOOBIG", Value: 500, ExpiresAt: time.Now().Add(24 * time.Hour)}
	s.Require().NoError(s.gdb.Create(&voucher).Error)

	_, err := common.CreateTransaction(&types.CreateTransactionRequestBody{
		Items:     []types.TransactionItem{{TicketID: ticket.ID, Qty: 2}},
		VoucherID: &voucher.ID,
		Email:     buyer.Email,
	}, buyer.ID)
	s.Equal(types.ERR_VALIDATION, s.apiErrorKind(err))
	s.Equal(5, s.ticketStock(ticket.ID))
}

func (s *TransactionsTestSuite) TestUploadPaymentProof() {
	organizer := s.createUser("org@test.dev", types.ROLE_ORGANIZER)
	buyer := s.createUser("buyer@test.dev", types.ROLE_CUSTOMER)
	other := s.createUser("other@test.dev", types.ROLE_CUSTOMER)
	event := s.createEvent(organizer.ID, "concert")
	ticket := s.createTicket(event.ID, 100, 5)

	txn, err := common.CreateTransaction(&types.CreateTransactionRequestBody{
		Items: []types.TransactionItem{{TicketID: ticket.ID, Qty: 1}},
		Email: buyer.Email,
	}, buyer.ID)
	s.Require().NoError(err)

	_, err = common.UploadPaymentProof(txn.UUID.String(), []byte("proof"), "image/png", other.ID)
	s.Equal(types.ERR_FORBIDDEN, s.apiErrorKind(err))

	updated, err := common.UploadPaymentProof(txn.UUID.String(), []byte("proof"), "image/png", buyer.ID)
	s.Require().NoError(err)
	s.Equal(types.TRANSACTION_WAITING_FOR_CONFIRMATION, updated.Status)
	s.Require().NotNil(updated.PaymentProof)
	s.True(s.store.has(*updated.PaymentProof))

	firstRef := *updated.PaymentProof
	again, err := common.UploadPaymentProof(txn.UUID.String(), []byte("proof2"), "image/png", buyer.ID)
	s.Require().NoError(err)
	s.Require().NotNil(again.PaymentProof)
	s.NotEqual(firstRef, *again.PaymentProof)
	s.False(s.store.has(firstRef))
	s.True(s.store.has(*again.PaymentProof))
}

func (s *TransactionsTestSuite) TestAcceptTransaction() {
	organizer := s.createUser("org@test.dev", types.ROLE_ORGANIZER)
	outsider := s.createUser("outsider@test.dev", types.ROLE_ORGANIZER)
	buyer := s.createUser("buyer@test.dev", types.ROLE_CUSTOMER)
	event := s.createEvent(organizer.ID, "concert")
	ticket := s.createTicket(event.ID, 100, 5)

	txn, err := common.CreateTransaction(&types.CreateTransactionRequestBody{
		Items: []types.TransactionItem{{TicketID: ticket.ID, Qty: 2}},
		Email: buyer.Email,
	}, buyer.ID)
	s.Require().NoError(err)

	// no proof uploaded yet
	err = common.AcceptTransaction(txn.UUID.String(), organizer.ID)
	s.Equal(types.ERR_CONFLICT, s.apiErrorKind(err))

	_, err = common.UploadPaymentProof(txn.UUID.String(), []byte("proof"), "image/png", buyer.ID)
	s.Require().NoError(err)

	err = common.AcceptTransaction(txn.UUID.String(), outsider.ID)
	s.Equal(types.ERR_FORBIDDEN, s.apiErrorKind(err))

	s.Require().NoError(common.AcceptTransaction(txn.UUID.String(), organizer.ID))
	fresh := s.reload(txn)
	s.Equal(types.TRANSACTION_DONE, fresh.Status)
	s.NotNil(fresh.ConfirmedAt)
	s.Equal(3, s.ticketStock(ticket.ID))

	var attendee models.EventAttendee
	err = s.gdb.Where(&models.EventAttendee{EventID: event.ID, UserID: buyer.ID}).First(&attendee).Error
	s.Require().NoError(err)
	s.Equal(2, attendee.TicketCount)
	s.Equal(int64(200), attendee.TotalPaid)

	err = common.AcceptTransaction(txn.UUID.String(), organizer.ID)
	s.Equal(types.ERR_CONFLICT, s.apiErrorKind(err))
}

func (s *TransactionsTestSuite) TestAcceptAggregatesAttendance() {
	organizer := s.createUser("org@test.dev", types.ROLE_ORGANIZER)
	buyer := s.createUser("buyer@test.dev", types.ROLE_CUSTOMER)
	event := s.createEvent(organizer.ID, "concert")
	ticket := s.createTicket(event.ID, 100, 10)

	for range 2 {
		txn, err := common.CreateTransaction(&types.CreateTransactionRequestBody{
			Items: []types.TransactionItem{{TicketID: ticket.ID, Qty: 2}},
			Email: buyer.Email,
		}, buyer.ID)
		s.Require().NoError(err)
		_, err = common.UploadPaymentProof(txn.UUID.String(), []byte("proof"), "image/png", buyer.ID)
		s.Require().NoError(err)
		s.Require().NoError(common.AcceptTransaction(txn.UUID.String(), organizer.ID))
	}

	var attendee models.EventAttendee
	err := s.gdb.Where(&models.EventAttendee{EventID: event.ID, UserID: buyer.ID}).First(&attendee).Error
	s.Require().NoError(err)
	s.Equal(4, attendee.TicketCount)
	s.Equal(int64(400), attendee.TotalPaid)
}

func (s *TransactionsTestSuite) TestRejectRestoresStockAndPoints() {
	organizer := s.createUser("org@test.dev", types.ROLE_ORGANIZER)
	buyer := s.createUser("buyer@test.dev", types.ROLE_CUSTOMER)
	event := s.createEvent(organizer.ID, "concert")
	ticket := s.createTicket(event.ID, 100, 5)
	s.grantPoints(buyer.ID, 50)

	txn, err := common.CreateTransaction(&types.CreateTransactionRequestBody{
		Items:     []types.TransactionItem{{TicketID: ticket.ID, Qty: 3}},
		UsePoints: 50,
		Email:     buyer.Email,
	}, buyer.ID)
	s.Require().NoError(err)
	s.Equal(2, s.ticketStock(ticket.ID))

	uploaded, err := common.UploadPaymentProof(txn.UUID.String(), []byte("proof"), "image/png", buyer.ID)
	s.Require().NoError(err)
	proofRef := *uploaded.PaymentProof

	s.Require().NoError(common.RejectTransaction(txn.UUID.String(), organizer.ID))
	fresh := s.reload(txn)
	s.Equal(types.TRANSACTION_REJECTED, fresh.Status)
	s.NotNil(fresh.CanceledAt)
	s.Nil(fresh.PaymentProof)
	s.Equal(5, s.ticketStock(ticket.ID))
	s.False(s.store.has(proofRef))

	balance, err := common.PointsBalance(s.gdb, buyer.ID)
	s.Require().NoError(err)
	s.Equal(int64(50), balance)

	err = common.RejectTransaction(txn.UUID.String(), organizer.ID)
	s.Equal(types.ERR_CONFLICT, s.apiErrorKind(err))
}

func (s *TransactionsTestSuite) TestExpireReleasesReservation() {
	organizer := s.createUser("org@test.dev", types.ROLE_ORGANIZER)
	buyer := s.createUser("buyer@test.dev", types.ROLE_CUSTOMER)
	event := s.createEvent(organizer.ID, "concert")
	ticket := s.createTicket(event.ID, 100, 5)
	s.grantPoints(buyer.ID, 20)

	txn, err := common.CreateTransaction(&types.CreateTransactionRequestBody{
		Items:     []types.TransactionItem{{TicketID: ticket.ID, Qty: 2}},
		UsePoints: 20,
		Email:     buyer.Email,
	}, buyer.ID)
	s.Require().NoError(err)
	s.Equal(3, s.ticketStock(ticket.ID))

	s.Require().NoError(common.ExpireTransaction(txn.UUID.String()))
	fresh := s.reload(txn)
	s.Equal(types.TRANSACTION_EXPIRED, fresh.Status)
	s.Equal(5, s.ticketStock(ticket.ID))

	balance, err := common.PointsBalance(s.gdb, buyer.ID)
	s.Require().NoError(err)
	s.Equal(int64(20), balance)

	// duplicate firing is a successful no-op and must not double-restore
	s.Require().NoError(common.ExpireTransaction(txn.UUID.String()))
	s.Equal(5, s.ticketStock(ticket.ID))

	// a late organizer decision finds the reservation gone
	err = common.AcceptTransaction(txn.UUID.String(), organizer.ID)
	s.Equal(types.ERR_CONFLICT, s.apiErrorKind(err))
}

func (s *TransactionsTestSuite) TestExpireAfterDoneIsNoOp() {
	organizer := s.createUser("org@test.dev", types.ROLE_ORGANIZER)
	buyer := s.createUser("buyer@test.dev", types.ROLE_CUSTOMER)
	event := s.createEvent(organizer.ID, "concert")
	ticket := s.createTicket(event.ID, 100, 5)

	txn, err := common.CreateTransaction(&types.CreateTransactionRequestBody{
		Items: []types.TransactionItem{{TicketID: ticket.ID, Qty: 2}},
		Email: buyer.Email,
	}, buyer.ID)
	s.Require().NoError(err)
	_, err = common.UploadPaymentProof(txn.UUID.String(), []byte("proof"), "image/png", buyer.ID)
	s.Require().NoError(err)
	s.Require().NoError(common.AcceptTransaction(txn.UUID.String(), organizer.ID))

	s.Require().NoError(common.ExpireTransaction(txn.UUID.String()))
	fresh := s.reload(txn)
	s.Equal(types.TRANSACTION_DONE, fresh.Status)
	s.Equal(3, s.ticketStock(ticket.ID))
}

func (s *TransactionsTestSuite) TestUploadAfterExpiryRefused() {
	organizer := s.createUser("org@test.dev", types.ROLE_ORGANIZER)
	buyer := s.createUser("buyer@test.dev", types.ROLE_CUSTOMER)
	event := s.createEvent(organizer.ID, "concert")
	ticket := s.createTicket(event.ID, 100, 5)

	txn, err := common.CreateTransaction(&types.CreateTransactionRequestBody{
		Items: []types.TransactionItem{{TicketID: ticket.ID, Qty: 1}},
		Email: buyer.Email,
	}, buyer.ID)
	s.Require().NoError(err)
	s.Require().NoError(common.ExpireTransaction(txn.UUID.String()))

	_, err = common.UploadPaymentProof(txn.UUID.String(), []byte("proof"), "image/png", buyer.ID)
	s.Equal(types.ERR_CONFLICT, s.apiErrorKind(err))
}

func (s *TransactionsTestSuite) TestRecoveryFiresOverdueExpiries() {
	organizer := s.createUser("org@test.dev", types.ROLE_ORGANIZER)
	buyer := s.createUser("buyer@test.dev", types.ROLE_CUSTOMER)
	event := s.createEvent(organizer.ID, "concert")
	ticket := s.createTicket(event.ID, 100, 5)

	txn, err := common.CreateTransaction(&types.CreateTransactionRequestBody{
		Items: []types.TransactionItem{{TicketID: ticket.ID, Qty: 2}},
		Email: buyer.Email,
	}, buyer.ID)
	s.Require().NoError(err)

	// simulate a restart after the deadline: the armed timer is gone, only the
	// durable task row remains, already overdue
	err = s.gdb.
		Model(&models.JobTask{}).
		Where(&models.JobTask{Topic: common.ExpiryTopic}).
		Update("runs_at", time.Now().Add(-time.Minute)).
		Error
	s.Require().NoError(err)

	s.Require().NoError(common.RecoverPendingExpiries())
	s.Require().Eventually(func() bool {
		var fresh models.Transaction
		if err := s.gdb.First(&fresh, txn.ID).Error; err != nil {
			return false
		}
		return fresh.Status == types.TRANSACTION_EXPIRED
	}, 5*time.Second, 50*time.Millisecond)

	s.Equal(5, s.ticketStock(ticket.ID))
	s.Require().Eventually(func() bool {
		var task models.JobTask
		if err := s.gdb.Where(&models.JobTask{Topic: common.ExpiryTopic}).First(&task).Error; err != nil {
			return false
		}
		return task.Status == "done"
	}, 5*time.Second, 50*time.Millisecond)
}

func (s *TransactionsTestSuite) TestEmptyCartRefused() {
	buyer := s.createUser("buyer@test.dev", types.ROLE_CUSTOMER)
	_, err := common.CreateTransaction(&types.CreateTransactionRequestBody{Email: buyer.Email}, buyer.ID)
	s.Equal(types.ERR_VALIDATION, s.apiErrorKind(err))
}

func TestTransactionsTestSuite(t *testing.T) {
	suite.Run(t, new(TransactionsTestSuite))
}
