package mqtt

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kilianp07/pa/core/admission"
	coremqtt "github.com/kilianp07/pa/core/mqtt"
	coremon "github.com/kilianp07/pa/core/monitoring"
	"github.com/kilianp07/pa/infra/logger"
)

// Admitter is the inbound surface served over MQTT.
type Admitter interface {
	Reserve(agent, module, item string, amount float64, priority int) error
	Release(agent, module, item string, amount float64) error
	Repri(agent, module, item string, amount float64, priority int) error
	RevokeAll() error
}

// Transport is the subset of PahoClient used by the RPC server.
type Transport interface {
	Subscribe(topic string, h Handler) error
	Publish(topic string, retained bool, payload []byte) error
}

// Info is published retained on the agent info topic.
type Info struct {
	Name        string `json:"name"`
	Role        string `json:"role"`
	Description string `json:"description"`
	Version     string `json:"version"`
}

// Server answers reserve/release/repri/revoke_all requests on the agent
// request topic.
type Server struct {
	t     Transport
	root  string
	info  Info
	adm   Admitter
	log   logger.Logger
	queue chan coremqtt.Request
}

// NewServer creates a Server for the agent described by info.
func NewServer(t Transport, root string, info Info, adm Admitter, log logger.Logger) *Server {
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Server{t: t, root: root, info: info, adm: adm, log: log, queue: make(chan coremqtt.Request, 64)}
}

// Run subscribes to the request topic, publishes the agent info and serves
// requests until ctx is done. Requests are handled one at a time.
func (s *Server) Run(ctx context.Context) error {
	topic := coremqtt.RequestTopic(s.root, s.info.Name)
	if err := s.t.Subscribe(topic, s.enqueue); err != nil {
		return err
	}
	if payload, err := json.Marshal(s.info); err == nil {
		if err := s.t.Publish(coremqtt.InfoTopic(s.root, s.info.Name), true, payload); err != nil {
			s.log.Warnf("publish info: %v", err)
		}
	}
	s.log.Infof("serving requests on %s", topic)
	for {
		select {
		case <-ctx.Done():
			return nil
		case req := <-s.queue:
			s.reply(req, s.Handle(req))
		}
	}
}

func (s *Server) enqueue(_ string, payload []byte) {
	var req coremqtt.Request
	if err := json.Unmarshal(payload, &req); err != nil {
		s.log.Errorf("failed to decode request: %v", err)
		coremon.CaptureException(err, map[string]string{"module": "rpc"})
		return
	}
	select {
	case s.queue <- req:
	default:
		s.log.Warnf("request queue full, dropping %s %s", req.Func, req.ID)
		// Paho handlers must not block on a publish.
		go s.reply(req, fmt.Errorf("%w: server busy", admission.ErrInvalidRequest))
	}
}

// Handle dispatches one request to the admitter.
func (s *Server) Handle(req coremqtt.Request) error {
	switch req.Func {
	case coremqtt.FuncReserve:
		return s.adm.Reserve(req.Agent, req.Module, req.Item, req.Amount, req.Priority)
	case coremqtt.FuncRelease:
		return s.adm.Release(req.Agent, req.Module, req.Item, req.Amount)
	case coremqtt.FuncRepri:
		return s.adm.Repri(req.Agent, req.Module, req.Item, req.Amount, req.Priority)
	case coremqtt.FuncRevokeAll:
		return s.adm.RevokeAll()
	default:
		return fmt.Errorf("%w: unknown function %q", admission.ErrInvalidRequest, req.Func)
	}
}

func (s *Server) reply(req coremqtt.Request, err error) {
	if req.ReplyTo == "" {
		return
	}
	rep := coremqtt.Reply{ID: req.ID, Status: coremqtt.StatusOK, Code: admission.Code(err)}
	if err != nil {
		rep.Status = coremqtt.StatusError
		rep.Message = err.Error()
		s.log.Debugf("%s %s/%s/%s %.1f: %v", req.Func, req.Agent, req.Module, req.Item, req.Amount, err)
	}
	payload, mErr := json.Marshal(rep)
	if mErr != nil {
		s.log.Errorf("encode reply: %v", mErr)
		return
	}
	if pErr := s.t.Publish(req.ReplyTo, false, payload); pErr != nil {
		s.log.Errorf("reply to %s failed: %v", req.ReplyTo, pErr)
	}
}
