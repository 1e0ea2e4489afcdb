package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rschio/bank/internal/core/bank"
	"github.com/rschio/bank/internal/core/ledger"
	"github.com/rschio/bank/internal/metrics"
	"go.opentelemetry.io/otel/trace"
)

func APIMux(s *Server, tracer trace.Tracer) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("POST /clients", middlewareWeb(tracer, s.CreateClient))
	mux.Handle("GET /clients/{taxID}/accounts", middlewareWeb(tracer, s.Accounts))
	mux.Handle("POST /clients/{taxID}/accounts", middlewareWeb(tracer, s.OpenAccount))
	mux.Handle("POST /clients/{taxID}/accounts/{number}/transactions", middlewareWeb(tracer, s.Transactions))
	mux.Handle("GET /clients/{taxID}/accounts/{number}/statement", middlewareWeb(tracer, s.Statement))
	mux.Handle("GET /accounts", middlewareWeb(tracer, s.ListAccounts))

	return mux
}

// DebugMux serves the operational endpoints, kept off the public API.
func DebugMux(m *metrics.Metrics) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /liveness", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	return mux
}

type Server struct {
	log  *slog.Logger
	bank *bank.Core
}

func NewServer(log *slog.Logger, b *bank.Core) *Server {
	return &Server{log: log, bank: b}
}

func (s *Server) CreateClient(w http.ResponseWriter, r *http.Request) {
	serveJSON(w, r, s, http.StatusCreated,
		func(ctx context.Context, _ params, req ClientReq) (ClientResp, error) {
			nc, err := req.toNewClient()
			if err != nil {
				return ClientResp{}, err
			}

			c, err := s.bank.CreateClient(ctx, nc)
			if err != nil {
				return ClientResp{}, err
			}

			return toClientResp(c), nil
		},
	)
}

func (s *Server) OpenAccount(w http.ResponseWriter, r *http.Request) {
	serveJSON(w, r, s, http.StatusCreated,
		func(ctx context.Context, p params, req AccountReq) (AccountResp, error) {
			na := bank.NewAccount{
				Number: req.Number,
				Type:   bank.AccountType(req.Type),
			}

			a, err := s.bank.OpenAccount(ctx, p.taxID, na)
			if err != nil {
				return AccountResp{}, err
			}

			return toAccountResp(a), nil
		},
	)
}

func (s *Server) Accounts(w http.ResponseWriter, r *http.Request) {
	serveJSON(w, r, s, http.StatusOK,
		func(ctx context.Context, p params, _ struct{}) ([]AccountResp, error) {
			as, err := s.bank.Accounts(ctx, p.taxID)
			if err != nil {
				return nil, err
			}

			return toAccountResps(as), nil
		},
	)
}

func (s *Server) Transactions(w http.ResponseWriter, r *http.Request) {
	serveJSON(w, r, s, http.StatusOK,
		func(ctx context.Context, p params, req TransactionReq) (Record, error) {
			nt := bank.NewTransaction{
				Kind:   req.Kind,
				Amount: req.Amount,
			}

			rec, err := s.bank.Submit(ctx, p.taxID, p.number, nt)
			if err != nil {
				return Record{}, err
			}

			return Record(rec), nil
		},
	)
}

func (s *Server) Statement(w http.ResponseWriter, r *http.Request) {
	serveJSON(w, r, s, http.StatusOK,
		func(ctx context.Context, p params, _ struct{}) (StatementResp, error) {
			st, err := s.bank.Statement(ctx, p.taxID, p.number)
			if err != nil {
				return StatementResp{}, err
			}

			return toStatementResp(st), nil
		},
	)
}

func (s *Server) ListAccounts(w http.ResponseWriter, r *http.Request) {
	serveJSON(w, r, s, http.StatusOK,
		func(ctx context.Context, _ params, _ struct{}) ([]SummaryResp, error) {
			ss, err := s.bank.ListAccounts(ctx)
			if err != nil {
				return nil, err
			}

			return toSummaryResps(ss), nil
		},
	)
}

// params are the path values of a request.
type params struct {
	taxID  string
	number int
}

func getParams(r *http.Request) (params, error) {
	p := params{taxID: r.PathValue("taxID")}

	sNumber := r.PathValue("number")
	if sNumber == "" {
		return p, nil
	}

	n, err := strconv.Atoi(sNumber)
	if err != nil || n <= 0 {
		return params{}, fmt.Errorf("%w: account number %q", bank.ErrInvalidArgument, sNumber)
	}
	p.number = n

	return p, nil
}

func serveJSON[Req any, Resp any](
	w http.ResponseWriter,
	r *http.Request,
	s *Server,
	status int,
	fn func(ctx context.Context, p params, req Req) (Resp, error),
) {
	ctx := r.Context()

	var req Req
	if r.Method != http.MethodGet {
		if r.Header.Get("Content-Type") != "application/json" {
			s.log.ErrorContext(ctx, "request must be a json")
			writeError(w, http.StatusBadRequest, "invalid_argument", "request must be a json")
			return
		}

		err := json.NewDecoder(r.Body).Decode(&req)
		r.Body.Close()
		if err != nil {
			s.log.ErrorContext(ctx, "decoding json", "ERROR", err)
			writeError(w, http.StatusBadRequest, "invalid_argument", "bad request")
			return
		}
	}

	p, err := getParams(r)
	if err != nil {
		s.log.InfoContext(ctx, "getParams", "ERROR", err)
		writeError(w, http.StatusBadRequest, "invalid_argument", err.Error())
		return
	}

	resp, err := fn(ctx, p, req)
	if err != nil {
		status, code := errorStatus(err)
		if status == http.StatusInternalServerError {
			s.log.ErrorContext(ctx, "fn", "ERROR", err)
			writeError(w, status, code, "internal error")
			return
		}

		s.log.InfoContext(ctx, "request refused", "code", code, "reason", err)
		writeError(w, status, code, err.Error())
		return
	}

	bs, err := json.Marshal(resp)
	if err != nil {
		s.log.ErrorContext(ctx, "failed to encode response", "ERROR", err)
		writeError(w, http.StatusInternalServerError, "internal", "failed to encode response")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(bs)
}

// errorStatus maps an error of the bank core to an HTTP status and a
// machine readable code.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, bank.ErrClientNotFound):
		return http.StatusNotFound, "client_not_found"

	case errors.Is(err, ledger.ErrAccountNotFound):
		return http.StatusNotFound, ledger.Code(err)

	case errors.Is(err, bank.ErrInvalidArgument):
		return http.StatusBadRequest, "invalid_argument"

	case errors.Is(err, bank.ErrDuplicateClientIdentity):
		return http.StatusConflict, "duplicate_client_identity"

	case errors.Is(err, ledger.ErrDuplicateAccountNumber):
		return http.StatusConflict, ledger.Code(err)

	case ledger.IsRejection(err):
		return http.StatusUnprocessableEntity, ledger.Code(err)

	default:
		return http.StatusInternalServerError, "internal"
	}
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	bs, _ := json.Marshal(ErrorResp{Code: code, Message: msg})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(bs)
}
