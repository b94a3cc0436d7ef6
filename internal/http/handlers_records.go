package http

import (
	"net/http"

	"emianalyzer/internal/core"
	"emianalyzer/internal/finance"
	"emianalyzer/internal/log"
)

// userID parses {userID} and confirms the user exists.
func (s *Server) userID(r *http.Request) (int64, error) {
	id, err := pathID(r, "userID")
	if err != nil {
		return 0, err
	}
	if _, err := s.store.GetUser(r.Context(), id); err != nil {
		return 0, err
	}
	return id, nil
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.store.ListUsers(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if users == nil {
		users = []core.User{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	user, err := s.records.CreateUser(r.Context(), req.user())
	if err != nil {
		writeError(w, r, err)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "User created", log.FieldUserID, user.ID)
	writeJSON(w, http.StatusCreated, user)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "userID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	user, err := s.store.GetUser(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleGetIncome(w http.ResponseWriter, r *http.Request) {
	userID, err := s.userID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	income, err := s.store.GetIncome(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if income == nil {
		income = &core.Income{UserID: userID}
	}
	writeJSON(w, http.StatusOK, income)
}

func (s *Server) handlePutIncome(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req incomeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	income := core.Income{UserID: userID, MonthlySalary: req.MonthlySalary, OtherIncome: req.OtherIncome}
	if err := s.records.SaveIncome(r.Context(), income); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, income)
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	userID, err := s.userID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	budget, err := s.store.GetBudget(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if budget == nil {
		budget = &core.Budget{UserID: userID}
	}
	writeJSON(w, http.StatusOK, budget)
}

func (s *Server) handlePutBudget(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req budgetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	budget := core.Budget{
		UserID:        userID,
		Grocery:       req.Grocery,
		Rent:          req.Rent,
		Transport:     req.Transport,
		Entertainment: req.Entertainment,
	}
	if err := s.records.SaveBudget(r.Context(), budget); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, budget)
}

func (s *Server) handleListLoans(w http.ResponseWriter, r *http.Request) {
	userID, err := s.userID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	loans, err := s.store.ListLoans(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if loans == nil {
		loans = []core.Loan{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"loans": loans})
}

func (s *Server) handleQuoteLoan(w http.ResponseWriter, r *http.Request) {
	if _, err := s.userID(r); err != nil {
		writeError(w, r, err)
		return
	}
	var req finance.LoanTermsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	terms, err := s.records.QuoteLoan(req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, terms)
}

func (s *Server) handleCreateLoan(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req finance.LoanTermsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	terms, err := s.records.CreateLoan(r.Context(), userID, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, terms)
}

func (s *Server) handleUpdateLoan(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	loanID, err := pathID(r, "loanID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req finance.LoanTermsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	terms, err := s.records.UpdateLoan(r.Context(), userID, loanID, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, terms)
}

func (s *Server) handleDeleteLoan(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	loanID, err := pathID(r, "loanID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.records.DeleteLoan(r.Context(), userID, loanID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListCards(w http.ResponseWriter, r *http.Request) {
	userID, err := s.userID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	cards, err := s.store.ListCards(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	entries, err := s.store.ListCardEntries(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if cards == nil {
		cards = []core.CreditCardAccount{}
	}
	if entries == nil {
		entries = []core.CreditCardEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"cards": cards, "entries": entries})
}

func (s *Server) handleCreateCard(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req cardRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	card, err := s.records.CreateCard(r.Context(), req.card(userID, 0))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, card)
}

func (s *Server) handleUpdateCard(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	cardID, err := pathID(r, "cardID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req cardRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	card := req.card(userID, cardID)
	if err := s.records.UpdateCard(r.Context(), card); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, card)
}

func (s *Server) handleDeleteCard(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	cardID, err := pathID(r, "cardID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.records.DeleteCard(r.Context(), userID, cardID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCreateCardEntry(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	cardID, err := pathID(r, "cardID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req entryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	entry, err := req.entry(cardID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	created, err := s.records.AddCardEntry(r.Context(), userID, entry)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleDeleteCardEntry(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	cardID, err := pathID(r, "cardID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	entryID, err := pathID(r, "entryID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.records.DeleteCardEntry(r.Context(), userID, cardID, entryID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
