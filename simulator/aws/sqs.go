package awssim

import (
	"bytes"
	"crypto/md5"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	sim "github.com/sockerless/cloudtour/simulator"
)

// SQS types

type SQSMessageAttribute struct {
	DataType    string `json:"DataType"`
	StringValue string `json:"StringValue,omitempty"`
	BinaryValue []byte `json:"BinaryValue,omitempty"`
}

type sqsMessage struct {
	MessageId       string
	Body            string
	Attributes      map[string]SQSMessageAttribute
	GroupId         string
	DeduplicationId string
	SequenceNumber  string
	SentAt          time.Time
	VisibleAt       time.Time
	ReceiptHandle   string
	ReceiveCount    int
	FirstReceivedAt time.Time
	md5OfBody       string
	md5OfAttributes string
}

type sqsQueue struct {
	mu         sync.Mutex
	Name       string
	URL        string
	Attributes map[string]string
	Tags       map[string]string
	CreatedAt  time.Time
	messages   []*sqsMessage
	dedup      map[string]dedupEntry
}

type dedupEntry struct {
	messageID      string
	sequenceNumber string
	expires        time.Time
}

const (
	sqsTargetPrefix   = "AmazonSQS."
	sqsErrorNamespace = "com.amazonaws.sqs#"
	dedupWindow       = 5 * time.Minute
	maxMessageBytes   = 262144
)

var defaultQueueAttributes = map[string]string{
	"VisibilityTimeout":             "30",
	"MaximumMessageSize":            "262144",
	"MessageRetentionPeriod":        "345600",
	"DelaySeconds":                  "0",
	"ReceiveMessageWaitTimeSeconds": "0",
}

type sqsService struct {
	region   string
	queues   *sim.StateStore[*sqsQueue]
	seqMu    sync.Mutex
	sequence uint64
	now      func() time.Time
}

func newSQSService(cfg sim.Config) *sqsService {
	return &sqsService{
		region: cfg.Region,
		queues: sim.NewStateStore[*sqsQueue](),
		now:    time.Now,
	}
}

func (s *sqsService) register(r *sim.AWSRouter) {
	r.Register(sqsTargetPrefix+"CreateQueue", s.handleCreateQueue)
	r.Register(sqsTargetPrefix+"GetQueueUrl", s.handleGetQueueUrl)
	r.Register(sqsTargetPrefix+"ListQueues", s.handleListQueues)
	r.Register(sqsTargetPrefix+"GetQueueAttributes", s.handleGetQueueAttributes)
	r.Register(sqsTargetPrefix+"SendMessage", s.handleSendMessage)
	r.Register(sqsTargetPrefix+"ReceiveMessage", s.handleReceiveMessage)
	r.Register(sqsTargetPrefix+"DeleteMessage", s.handleDeleteMessage)
	r.Register(sqsTargetPrefix+"DeleteQueue", s.handleDeleteQueue)
	r.Register(sqsTargetPrefix+"PurgeQueue", s.handlePurgeQueue)
	r.Register(sqsTargetPrefix+"ListQueueTags", s.handleListQueueTags)
}

func sqsError(w http.ResponseWriter, code, queryCode string, status int, format string, args ...any) {
	fault := "Sender"
	if status >= 500 {
		fault = "Receiver"
	}
	w.Header().Set("x-amzn-query-error", queryCode+";"+fault)
	sim.AWSErrorf(w, sqsErrorNamespace+code, status, format, args...)
}

func queueDoesNotExist(w http.ResponseWriter) {
	sqsError(w, "QueueDoesNotExist", "AWS.SimpleQueueService.NonExistentQueue", http.StatusBadRequest,
		"The specified queue does not exist.")
}

func invalidParameter(w http.ResponseWriter, format string, args ...any) {
	sqsError(w, "InvalidParameterValue", "InvalidParameterValue", http.StatusBadRequest, format, args...)
}

func writeSQS(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/x-amz-json-1.0")
	sim.WriteJSON(w, http.StatusOK, v)
}

func queueURL(r *http.Request, name string) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, r.Host, ec2Owner, name)
}

// queueNameFromURL accepts full queue URLs regardless of host, since SDK
// callers may reach the simulator through different addresses.
func queueNameFromURL(u string) string {
	u = strings.TrimRight(u, "/")
	if i := strings.LastIndex(u, "/"); i >= 0 {
		return u[i+1:]
	}
	return u
}

func (s *sqsService) lookup(w http.ResponseWriter, url string) (*sqsQueue, bool) {
	q, ok := s.queues.Get(queueNameFromURL(url))
	if !ok {
		queueDoesNotExist(w)
		return nil, false
	}
	return q, true
}

func (s *sqsService) nextSequence() string {
	s.seqMu.Lock()
	defer s.seqMu.Unlock()
	s.sequence++
	return fmt.Sprintf("%020d", 18000000000000000000/1000+s.sequence)
}

func validQueueName(name string, fifo bool) bool {
	base := name
	if fifo {
		if !strings.HasSuffix(name, ".fifo") {
			return false
		}
		base = strings.TrimSuffix(name, ".fifo")
	}
	if len(name) == 0 || len(name) > 80 {
		return false
	}
	for _, c := range base {
		if !(c == '-' || c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')) {
			return false
		}
	}
	return true
}

// ---- Queues ----

func (s *sqsService) handleCreateQueue(w http.ResponseWriter, r *http.Request) {
	var req struct {
		QueueName  string            `json:"QueueName"`
		Attributes map[string]string `json:"Attributes"`
		Tags       map[string]string `json:"tags"`
	}
	if err := sim.ReadJSON(r, &req); err != nil {
		invalidParameter(w, "Malformed request body: %v", err)
		return
	}

	fifo := req.Attributes["FifoQueue"] == "true"
	if strings.HasSuffix(req.QueueName, ".fifo") && !fifo {
		invalidParameter(w, "The name of a FIFO queue can only include alphanumeric characters, hyphens, or underscores, must end with .fifo suffix. Set the FifoQueue attribute to true.")
		return
	}
	if !validQueueName(req.QueueName, fifo) {
		invalidParameter(w, "Can only include alphanumeric characters, hyphens, or underscores. 1 to 80 in length")
		return
	}
	if _, ok := req.Attributes["ContentBasedDeduplication"]; ok && !fifo {
		invalidParameter(w, "Unknown Attribute ContentBasedDeduplication.")
		return
	}

	attrs := make(map[string]string, len(defaultQueueAttributes)+len(req.Attributes))
	for k, v := range defaultQueueAttributes {
		attrs[k] = v
	}
	for k, v := range req.Attributes {
		attrs[k] = v
	}
	if fifo {
		if _, ok := attrs["ContentBasedDeduplication"]; !ok {
			attrs["ContentBasedDeduplication"] = "false"
		}
	}

	q := &sqsQueue{
		Name:       req.QueueName,
		URL:        queueURL(r, req.QueueName),
		Attributes: attrs,
		Tags:       req.Tags,
		CreatedAt:  s.now(),
		dedup:      make(map[string]dedupEntry),
	}
	if !s.queues.PutIfAbsent(req.QueueName, q) {
		existing, _ := s.queues.Get(req.QueueName)
		existing.mu.Lock()
		same := true
		for k, v := range req.Attributes {
			if existing.Attributes[k] != v {
				same = false
			}
		}
		existing.mu.Unlock()
		if !same {
			sqsError(w, "QueueNameExists", "QueueAlreadyExists", http.StatusBadRequest,
				"A queue already exists with the same name and a different value for attribute(s)")
			return
		}
		q = existing
	}

	writeSQS(w, map[string]string{"QueueUrl": queueURL(r, q.Name)})
}

func (s *sqsService) handleGetQueueUrl(w http.ResponseWriter, r *http.Request) {
	var req struct {
		QueueName string `json:"QueueName"`
	}
	if err := sim.ReadJSON(r, &req); err != nil {
		invalidParameter(w, "Malformed request body: %v", err)
		return
	}
	if _, ok := s.queues.Get(req.QueueName); !ok {
		queueDoesNotExist(w)
		return
	}
	writeSQS(w, map[string]string{"QueueUrl": queueURL(r, req.QueueName)})
}

func (s *sqsService) handleListQueues(w http.ResponseWriter, r *http.Request) {
	var req struct {
		QueueNamePrefix string `json:"QueueNamePrefix"`
		MaxResults      int    `json:"MaxResults"`
		NextToken       string `json:"NextToken"`
	}
	if err := sim.ReadJSON(r, &req); err != nil {
		invalidParameter(w, "Malformed request body: %v", err)
		return
	}

	queues := s.queues.Filter(func(q *sqsQueue) bool {
		return strings.HasPrefix(q.Name, req.QueueNamePrefix) && q.Name > req.NextToken
	})

	resp := map[string]any{}
	if req.MaxResults > 0 && len(queues) > req.MaxResults {
		queues = queues[:req.MaxResults]
		resp["NextToken"] = queues[len(queues)-1].Name
	}
	if len(queues) > 0 {
		urls := make([]string, 0, len(queues))
		for _, q := range queues {
			urls = append(urls, queueURL(r, q.Name))
		}
		resp["QueueUrls"] = urls
	}
	writeSQS(w, resp)
}

func (s *sqsService) handleGetQueueAttributes(w http.ResponseWriter, r *http.Request) {
	var req struct {
		QueueUrl       string   `json:"QueueUrl"`
		AttributeNames []string `json:"AttributeNames"`
	}
	if err := sim.ReadJSON(r, &req); err != nil {
		invalidParameter(w, "Malformed request body: %v", err)
		return
	}
	q, ok := s.lookup(w, req.QueueUrl)
	if !ok {
		return
	}

	now := s.now()
	q.mu.Lock()
	all := make(map[string]string, len(q.Attributes)+6)
	for k, v := range q.Attributes {
		all[k] = v
	}
	visible, inflight, delayed := 0, 0, 0
	for _, m := range q.messages {
		switch {
		case m.ReceiptHandle != "" && now.Before(m.VisibleAt):
			inflight++
		case m.ReceiptHandle == "" && now.Before(m.VisibleAt):
			delayed++
		default:
			visible++
		}
	}
	q.mu.Unlock()

	all["ApproximateNumberOfMessages"] = strconv.Itoa(visible)
	all["ApproximateNumberOfMessagesNotVisible"] = strconv.Itoa(inflight)
	all["ApproximateNumberOfMessagesDelayed"] = strconv.Itoa(delayed)
	all["CreatedTimestamp"] = strconv.FormatInt(q.CreatedAt.Unix(), 10)
	all["LastModifiedTimestamp"] = strconv.FormatInt(q.CreatedAt.Unix(), 10)
	all["QueueArn"] = fmt.Sprintf("arn:aws:sqs:%s:%s:%s", s.region, ec2Owner, q.Name)

	attrs := make(map[string]string)
	for _, name := range req.AttributeNames {
		if name == "All" {
			attrs = all
			break
		}
		if v, ok := all[name]; ok {
			attrs[name] = v
		}
	}
	writeSQS(w, map[string]any{"Attributes": attrs})
}

func (s *sqsService) handleDeleteQueue(w http.ResponseWriter, r *http.Request) {
	var req struct {
		QueueUrl string `json:"QueueUrl"`
	}
	if err := sim.ReadJSON(r, &req); err != nil {
		invalidParameter(w, "Malformed request body: %v", err)
		return
	}
	if !s.queues.Delete(queueNameFromURL(req.QueueUrl)) {
		queueDoesNotExist(w)
		return
	}
	writeSQS(w, map[string]any{})
}

func (s *sqsService) handleListQueueTags(w http.ResponseWriter, r *http.Request) {
	var req struct {
		QueueUrl string `json:"QueueUrl"`
	}
	if err := sim.ReadJSON(r, &req); err != nil {
		invalidParameter(w, "Malformed request body: %v", err)
		return
	}
	q, ok := s.lookup(w, req.QueueUrl)
	if !ok {
		return
	}
	q.mu.Lock()
	tags := make(map[string]string, len(q.Tags))
	for k, v := range q.Tags {
		tags[k] = v
	}
	q.mu.Unlock()

	resp := map[string]any{}
	if len(tags) > 0 {
		resp["Tags"] = tags
	}
	writeSQS(w, resp)
}

func (s *sqsService) handlePurgeQueue(w http.ResponseWriter, r *http.Request) {
	var req struct {
		QueueUrl string `json:"QueueUrl"`
	}
	if err := sim.ReadJSON(r, &req); err != nil {
		invalidParameter(w, "Malformed request body: %v", err)
		return
	}
	q, ok := s.lookup(w, req.QueueUrl)
	if !ok {
		return
	}
	q.mu.Lock()
	q.messages = nil
	q.mu.Unlock()
	writeSQS(w, map[string]any{})
}

// ---- Messages ----

func (s *sqsService) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		QueueUrl               string                         `json:"QueueUrl"`
		MessageBody            string                         `json:"MessageBody"`
		MessageGroupId         string                         `json:"MessageGroupId"`
		MessageDeduplicationId string                         `json:"MessageDeduplicationId"`
		DelaySeconds           int                            `json:"DelaySeconds"`
		MessageAttributes      map[string]SQSMessageAttribute `json:"MessageAttributes"`
	}
	if err := sim.ReadJSON(r, &req); err != nil {
		invalidParameter(w, "Malformed request body: %v", err)
		return
	}
	q, ok := s.lookup(w, req.QueueUrl)
	if !ok {
		return
	}
	if req.MessageBody == "" {
		sqsError(w, "MissingParameter", "MissingParameter", http.StatusBadRequest,
			"The request must contain the parameter MessageBody.")
		return
	}
	if len(req.MessageBody) > maxMessageBytes {
		invalidParameter(w, "One or more parameters are invalid. Reason: Message must be shorter than %d bytes.", maxMessageBytes)
		return
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	fifo := q.Attributes["FifoQueue"] == "true"
	dedupID := req.MessageDeduplicationId
	if fifo {
		if req.MessageGroupId == "" {
			sqsError(w, "MissingParameter", "MissingParameter", http.StatusBadRequest,
				"The request must contain the parameter MessageGroupId.")
			return
		}
		if req.DelaySeconds != 0 {
			invalidParameter(w, "Value %d for parameter DelaySeconds is invalid. Reason: The request include parameter that is not valid for this queue type.", req.DelaySeconds)
			return
		}
		if dedupID == "" {
			if q.Attributes["ContentBasedDeduplication"] != "true" {
				invalidParameter(w, "The queue should either have ContentBasedDeduplication enabled or MessageDeduplicationId provided explicitly")
				return
			}
			sum := sha256.Sum256([]byte(req.MessageBody))
			dedupID = hex.EncodeToString(sum[:])
		}
	}

	now := s.now()
	bodyMD5 := md5Hex([]byte(req.MessageBody))
	attrsMD5 := md5OfMessageAttributes(req.MessageAttributes)

	if fifo {
		if prior, ok := q.dedup[dedupID]; ok && now.Before(prior.expires) {
			// duplicate within the window: accepted but not enqueued
			writeSQS(w, sendMessageResponse(prior.messageID, bodyMD5, attrsMD5, prior.sequenceNumber))
			return
		}
	}

	msg := &sqsMessage{
		MessageId:       generateUUID(),
		Body:            req.MessageBody,
		Attributes:      req.MessageAttributes,
		GroupId:         req.MessageGroupId,
		DeduplicationId: dedupID,
		SentAt:          now,
		VisibleAt:       now.Add(time.Duration(req.DelaySeconds) * time.Second),
		md5OfBody:       bodyMD5,
		md5OfAttributes: attrsMD5,
	}
	if fifo {
		msg.SequenceNumber = s.nextSequence()
		q.dedup[dedupID] = dedupEntry{messageID: msg.MessageId, sequenceNumber: msg.SequenceNumber, expires: now.Add(dedupWindow)}
	}
	q.messages = append(q.messages, msg)

	writeSQS(w, sendMessageResponse(msg.MessageId, bodyMD5, attrsMD5, msg.SequenceNumber))
}

func sendMessageResponse(id, bodyMD5, attrsMD5, seq string) map[string]string {
	resp := map[string]string{
		"MessageId":        id,
		"MD5OfMessageBody": bodyMD5,
	}
	if attrsMD5 != "" {
		resp["MD5OfMessageAttributes"] = attrsMD5
	}
	if seq != "" {
		resp["SequenceNumber"] = seq
	}
	return resp
}

type receivedMessage struct {
	MessageId              string                         `json:"MessageId"`
	ReceiptHandle          string                         `json:"ReceiptHandle"`
	MD5OfBody              string                         `json:"MD5OfBody"`
	Body                   string                         `json:"Body"`
	Attributes             map[string]string              `json:"Attributes,omitempty"`
	MessageAttributes      map[string]SQSMessageAttribute `json:"MessageAttributes,omitempty"`
	MD5OfMessageAttributes string                         `json:"MD5OfMessageAttributes,omitempty"`
}

func (s *sqsService) handleReceiveMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		QueueUrl                    string   `json:"QueueUrl"`
		MaxNumberOfMessages         int      `json:"MaxNumberOfMessages"`
		MessageAttributeNames       []string `json:"MessageAttributeNames"`
		MessageSystemAttributeNames []string `json:"MessageSystemAttributeNames"`
		AttributeNames              []string `json:"AttributeNames"`
		VisibilityTimeout           *int     `json:"VisibilityTimeout"`
		WaitTimeSeconds             *int     `json:"WaitTimeSeconds"`
	}
	if err := sim.ReadJSON(r, &req); err != nil {
		invalidParameter(w, "Malformed request body: %v", err)
		return
	}
	q, ok := s.lookup(w, req.QueueUrl)
	if !ok {
		return
	}

	max := req.MaxNumberOfMessages
	if max == 0 {
		max = 1
	}
	if max < 1 || max > 10 {
		invalidParameter(w, "Value %d for parameter MaxNumberOfMessages is invalid. Reason: Must be between 1 and 10.", max)
		return
	}

	q.mu.Lock()
	visibility, _ := strconv.Atoi(q.Attributes["VisibilityTimeout"])
	waitSeconds, _ := strconv.Atoi(q.Attributes["ReceiveMessageWaitTimeSeconds"])
	q.mu.Unlock()
	if req.VisibilityTimeout != nil {
		visibility = *req.VisibilityTimeout
	}
	if req.WaitTimeSeconds != nil {
		waitSeconds = *req.WaitTimeSeconds
	}

	deadline := s.now().Add(time.Duration(waitSeconds) * time.Second)
	var batch []receivedMessage
	for {
		batch = s.receive(q, max, time.Duration(visibility)*time.Second, req.MessageAttributeNames,
			append(req.MessageSystemAttributeNames, req.AttributeNames...))
		if len(batch) > 0 || !s.now().Before(deadline) {
			break
		}
		select {
		case <-r.Context().Done():
			return
		case <-time.After(50 * time.Millisecond):
		}
	}

	resp := map[string]any{}
	if len(batch) > 0 {
		resp["Messages"] = batch
	}
	writeSQS(w, resp)
}

// receive claims up to max visible messages. On FIFO queues messages come
// out in send order and a group with an in-flight message is skipped.
func (s *sqsService) receive(q *sqsQueue, max int, visibility time.Duration, attrNames, systemNames []string) []receivedMessage {
	now := s.now()
	q.mu.Lock()
	defer q.mu.Unlock()

	fifo := q.Attributes["FifoQueue"] == "true"
	blocked := make(map[string]bool)
	if fifo {
		for _, m := range q.messages {
			if m.ReceiptHandle != "" && now.Before(m.VisibleAt) {
				blocked[m.GroupId] = true
			}
		}
	}

	var out []receivedMessage
	for _, m := range q.messages {
		if len(out) >= max {
			break
		}
		if now.Before(m.VisibleAt) {
			continue
		}
		if fifo && blocked[m.GroupId] {
			continue
		}

		m.ReceiptHandle = base64.StdEncoding.EncodeToString([]byte(m.MessageId + ":" + generateUUID()))
		m.VisibleAt = now.Add(visibility)
		m.ReceiveCount++
		if m.FirstReceivedAt.IsZero() {
			m.FirstReceivedAt = now
		}

		rm := receivedMessage{
			MessageId:     m.MessageId,
			ReceiptHandle: m.ReceiptHandle,
			MD5OfBody:     m.md5OfBody,
			Body:          m.Body,
			Attributes:    systemAttributes(m, systemNames),
		}
		if selected := selectAttributes(m.Attributes, attrNames); len(selected) > 0 {
			rm.MessageAttributes = selected
			rm.MD5OfMessageAttributes = md5OfMessageAttributes(selected)
		}
		out = append(out, rm)
	}
	return out
}

func systemAttributes(m *sqsMessage, names []string) map[string]string {
	all := map[string]string{
		"SenderId":                         ec2Owner,
		"SentTimestamp":                    strconv.FormatInt(m.SentAt.UnixMilli(), 10),
		"ApproximateReceiveCount":          strconv.Itoa(m.ReceiveCount),
		"ApproximateFirstReceiveTimestamp": strconv.FormatInt(m.FirstReceivedAt.UnixMilli(), 10),
	}
	if m.GroupId != "" {
		all["MessageGroupId"] = m.GroupId
		all["MessageDeduplicationId"] = m.DeduplicationId
		all["SequenceNumber"] = m.SequenceNumber
	}
	out := make(map[string]string)
	for _, n := range names {
		if n == "All" {
			return all
		}
		if v, ok := all[n]; ok {
			out[n] = v
		}
	}
	return out
}

func selectAttributes(attrs map[string]SQSMessageAttribute, names []string) map[string]SQSMessageAttribute {
	out := make(map[string]SQSMessageAttribute)
	for _, n := range names {
		switch {
		case n == "All" || n == ".*":
			return attrs
		case strings.HasSuffix(n, ".*"):
			prefix := strings.TrimSuffix(n, "*")
			for k, v := range attrs {
				if strings.HasPrefix(k, prefix) {
					out[k] = v
				}
			}
		default:
			if v, ok := attrs[n]; ok {
				out[n] = v
			}
		}
	}
	return out
}

func (s *sqsService) handleDeleteMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		QueueUrl      string `json:"QueueUrl"`
		ReceiptHandle string `json:"ReceiptHandle"`
	}
	if err := sim.ReadJSON(r, &req); err != nil {
		invalidParameter(w, "Malformed request body: %v", err)
		return
	}
	q, ok := s.lookup(w, req.QueueUrl)
	if !ok {
		return
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	for i, m := range q.messages {
		if m.ReceiptHandle != "" && m.ReceiptHandle == req.ReceiptHandle {
			q.messages = append(q.messages[:i], q.messages[i+1:]...)
			writeSQS(w, map[string]any{})
			return
		}
	}
	sqsError(w, "ReceiptHandleIsInvalid", "ReceiptHandleIsInvalid", http.StatusBadRequest,
		"The input receipt handle \"%s\" is not a valid receipt handle.", req.ReceiptHandle)
}

func md5Hex(b []byte) string {
	sum := md5.Sum(b)
	return hex.EncodeToString(sum[:])
}

// md5OfMessageAttributes implements the SQS attribute digest: for each
// attribute in name order, length-prefixed name, length-prefixed data
// type, a transport byte (1 string, 2 binary), then the length-prefixed
// value. Lengths are 4-byte big-endian.
func md5OfMessageAttributes(attrs map[string]SQSMessageAttribute) string {
	if len(attrs) == 0 {
		return ""
	}
	names := make([]string, 0, len(attrs))
	for n := range attrs {
		names = append(names, n)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	writeLen := func(b []byte) {
		var n [4]byte
		binary.BigEndian.PutUint32(n[:], uint32(len(b)))
		buf.Write(n[:])
		buf.Write(b)
	}
	for _, n := range names {
		a := attrs[n]
		writeLen([]byte(n))
		writeLen([]byte(a.DataType))
		if strings.HasPrefix(a.DataType, "Binary") {
			buf.WriteByte(2)
			writeLen(a.BinaryValue)
		} else {
			buf.WriteByte(1)
			writeLen([]byte(a.StringValue))
		}
	}
	return md5Hex(buf.Bytes())
}
