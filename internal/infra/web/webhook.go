package web

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"trading-journal/internal/domain/model"
	"trading-journal/internal/infra/logging"
	"trading-journal/internal/infra/metrics"
)

const (
	signatureHeader    = "Stripe-Signature"
	signatureTolerance = 5 * time.Minute
	maxWebhookBody     = 1 << 20 // 1 MiB
)

// verifySignature checks the provider's webhook signature header,
// `t=<unix>,v1=<hex hmac>`, where the MAC is HMAC-SHA256 over
// "<t>.<payload>". Timestamps outside the tolerance window are rejected to
// blunt replay of captured deliveries.
func verifySignature(header string, payload []byte, secret string, now time.Time) error {
	if secret == "" {
		return fmt.Errorf("webhook secret not configured")
	}
	var ts int64
	var sigs []string
	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			v, err := strconv.ParseInt(kv[1], 10, 64)
			if err != nil {
				return fmt.Errorf("bad timestamp in signature header")
			}
			ts = v
		case "v1":
			sigs = append(sigs, kv[1])
		}
	}
	if ts == 0 || len(sigs) == 0 {
		return fmt.Errorf("malformed signature header")
	}
	age := now.Sub(time.Unix(ts, 0))
	if age > signatureTolerance || age < -signatureTolerance {
		return fmt.Errorf("signature timestamp outside tolerance")
	}

	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", ts)
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	for _, sig := range sigs {
		if hmac.Equal([]byte(expected), []byte(sig)) {
			return nil
		}
	}
	return fmt.Errorf("no matching signature")
}

// SignPayload produces a valid signature header for a payload. Used by the
// noop/dev flow and tests.
func SignPayload(payload []byte, secret string, now time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", now.Unix())
	mac.Write(payload)
	return fmt.Sprintf("t=%d,v1=%s", now.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

// webhookHandler verifies, parses and reconciles one billing event. The
// provider retries non-2xx deliveries, so only reconciler failures return
// 500; verification failures are 400 (retrying a forged event is useless).
func (s *Server) webhookHandler(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable body")
		return
	}
	if err := verifySignature(r.Header.Get(signatureHeader), payload, s.webhookSecret, time.Now()); err != nil {
		s.log.Warn().Err(err).Msg("webhook signature rejected")
		writeError(w, http.StatusBadRequest, "webhook signature verification failed")
		return
	}

	ev, err := model.ParseBillingEvent(payload)
	if err != nil {
		s.log.Warn().Err(err).Msg("webhook payload unparseable")
		writeError(w, http.StatusBadRequest, "invalid event payload")
		return
	}

	ctx := logging.WithEventID(r.Context(), ev.ID)
	if err := s.reconciler.Reconcile(ctx, ev); err != nil {
		logging.With(ctx, s.log).Error().Err(err).Str("kind", string(ev.Kind)).Msg("event reconciliation failed")
		metrics.IncBillingEvent(string(ev.Kind), "error")
		writeError(w, http.StatusInternalServerError, "event processing failed")
		return
	}
	outcome := "applied"
	if !ev.Known() {
		outcome = "dropped"
	}
	metrics.IncBillingEvent(string(ev.Kind), outcome)
	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}
