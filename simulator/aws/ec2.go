package awssim

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	sim "github.com/sockerless/cloudtour/simulator"
)

// EC2 types

type EC2Tag struct {
	Key   string
	Value string
}

type EC2KeyPair struct {
	KeyPairId      string
	KeyName        string
	KeyFingerprint string
	KeyType        string
	Tags           []EC2Tag
	CreateTime     time.Time
}

type EC2Image struct {
	ImageId            string
	Name               string
	OwnerId            string
	CreationDate       string
	State              string
	Architecture       string
	RootDeviceType     string
	VirtualizationType string
}

type EC2Instance struct {
	InstanceId    string
	ReservationId string
	ImageId       string
	InstanceType  string
	KeyName       string
	Tags          []EC2Tag
	LaunchTime    time.Time
	TerminatedAt  *time.Time
	PrivateIp     string
}

const (
	ec2Owner     = "123456789012"
	canonicalID  = "099720109477"
	ec2Namespace = `xmlns="http://ec2.amazonaws.com/doc/2016-11-15/"`
)

// instance state codes as reported by EC2
var stateCodes = map[string]int{
	"pending":       0,
	"running":       16,
	"shutting-down": 32,
	"terminated":    48,
}

type ec2Service struct {
	bootDelay     time.Duration
	shutdownDelay time.Duration
	keyPairs      *sim.StateStore[EC2KeyPair]
	images        *sim.StateStore[EC2Image]
	instances     *sim.StateStore[EC2Instance]
	now           func() time.Time
}

func newEC2Service(cfg sim.Config) *ec2Service {
	s := &ec2Service{
		bootDelay:     cfg.BootDelay,
		shutdownDelay: cfg.ShutdownDelay,
		keyPairs:      sim.NewStateStore[EC2KeyPair](),
		images:        sim.NewStateStore[EC2Image](),
		instances:     sim.NewStateStore[EC2Instance](),
		now:           time.Now,
	}
	s.seedImages()
	return s
}

func (s *ec2Service) register(r *sim.AWSQueryRouter) {
	r.Register("DescribeKeyPairs", s.handleDescribeKeyPairs)
	r.Register("CreateKeyPair", s.handleCreateKeyPair)
	r.Register("DeleteKeyPair", s.handleDeleteKeyPair)
	r.Register("DescribeImages", s.handleDescribeImages)
	r.Register("RunInstances", s.handleRunInstances)
	r.Register("DescribeInstances", s.handleDescribeInstances)
	r.Register("TerminateInstances", s.handleTerminateInstances)
}

// seedImages publishes a few Canonical Ubuntu images so that image lookups
// by owner and name pattern have something to sort.
func (s *ec2Service) seedImages() {
	seed := []EC2Image{
		{Name: "ubuntu/images/hvm-ssd/ubuntu-focal-20.04-amd64-server-20240110", CreationDate: "2024-01-10T05:12:31.000Z"},
		{Name: "ubuntu/images/hvm-ssd/ubuntu-focal-20.04-amd64-server-20240531", CreationDate: "2024-05-31T11:02:09.000Z"},
		{Name: "ubuntu/images/hvm-ssd/ubuntu-focal-20.04-amd64-server-20231207", CreationDate: "2023-12-07T08:44:50.000Z"},
		{Name: "ubuntu/images/hvm-ssd/ubuntu-focal-20.04-arm64-server-20240531", CreationDate: "2024-05-31T11:03:40.000Z", Architecture: "arm64"},
		{Name: "ubuntu/images/hvm-ssd/ubuntu-jammy-22.04-amd64-server-20240601", CreationDate: "2024-06-01T09:30:00.000Z"},
	}
	for _, img := range seed {
		img.ImageId = ec2ID("ami")
		img.OwnerId = canonicalID
		img.State = "available"
		img.RootDeviceType = "ebs"
		img.VirtualizationType = "hvm"
		if img.Architecture == "" {
			img.Architecture = "x86_64"
		}
		s.images.Put(img.ImageId, img)
	}
}

// PutImage registers an additional image, for tests that need a specific
// catalogue.
func (s *ec2Service) PutImage(img EC2Image) {
	if img.ImageId == "" {
		img.ImageId = ec2ID("ami")
	}
	s.images.Put(img.ImageId, img)
}

// state derives the lifecycle state from launch/terminate timestamps.
func (s *ec2Service) state(inst EC2Instance) string {
	now := s.now()
	if inst.TerminatedAt != nil {
		if now.Sub(*inst.TerminatedAt) >= s.shutdownDelay {
			return "terminated"
		}
		return "shutting-down"
	}
	if now.Sub(inst.LaunchTime) >= s.bootDelay {
		return "running"
	}
	return "pending"
}

// Tag helpers

func parseTagSpecifications(r *http.Request, resourceType string) []EC2Tag {
	var tags []EC2Tag
	for i := 1; ; i++ {
		prefix := fmt.Sprintf("TagSpecification.%d", i)
		rt := r.FormValue(prefix + ".ResourceType")
		if rt == "" {
			break
		}
		if rt != resourceType {
			continue
		}
		for j := 1; ; j++ {
			key := r.FormValue(fmt.Sprintf("%s.Tag.%d.Key", prefix, j))
			if key == "" {
				break
			}
			tags = append(tags, EC2Tag{Key: key, Value: r.FormValue(fmt.Sprintf("%s.Tag.%d.Value", prefix, j))})
		}
	}
	return tags
}

func writeTagSetXML(tags []EC2Tag) string {
	if len(tags) == 0 {
		return "<tagSet/>"
	}
	var b strings.Builder
	b.WriteString("<tagSet>")
	for _, t := range tags {
		fmt.Fprintf(&b, "<item><key>%s</key><value>%s</value></item>", sim.XMLEscape(t.Key), sim.XMLEscape(t.Value))
	}
	b.WriteString("</tagSet>")
	return b.String()
}

func tagValue(tags []EC2Tag, key string) (string, bool) {
	for _, t := range tags {
		if t.Key == key {
			return t.Value, true
		}
	}
	return "", false
}

func ec2ID(prefix string) string {
	return prefix + "-" + strings.ReplaceAll(generateUUID(), "-", "")[:17]
}

func writeEC2(w http.ResponseWriter, format string, args ...any) {
	w.Header().Set("Content-Type", "text/xml")
	fmt.Fprintf(w, format, args...)
}

func ec2NotFound(w http.ResponseWriter, r *http.Request, code, message string) {
	sim.EC2ErrorXML(w, code, message, sim.RequestID(r.Context()), http.StatusBadRequest)
}

// ---- Key pairs ----

func keyPairItemXML(kp EC2KeyPair) string {
	return fmt.Sprintf(`<item>
    <keyPairId>%s</keyPairId><keyName>%s</keyName><keyFingerprint>%s</keyFingerprint>
    <keyType>%s</keyType><createTime>%s</createTime>
    %s
  </item>`, kp.KeyPairId, sim.XMLEscape(kp.KeyName), kp.KeyFingerprint, kp.KeyType,
		kp.CreateTime.UTC().Format(time.RFC3339), writeTagSetXML(kp.Tags))
}

func (s *ec2Service) handleDescribeKeyPairs(w http.ResponseWriter, r *http.Request) {
	names := sim.IndexedValues(r, "KeyName")
	ids := sim.IndexedValues(r, "KeyPairId")

	var pairs []EC2KeyPair
	for _, name := range names {
		kp, ok := s.keyPairs.Get(name)
		if !ok {
			ec2NotFound(w, r, "InvalidKeyPair.NotFound", fmt.Sprintf("The key pair '%s' does not exist", name))
			return
		}
		pairs = append(pairs, kp)
	}
	for _, id := range ids {
		found := s.keyPairs.Filter(func(kp EC2KeyPair) bool { return kp.KeyPairId == id })
		if len(found) == 0 {
			ec2NotFound(w, r, "InvalidKeyPair.NotFound", fmt.Sprintf("The key pair '%s' does not exist", id))
			return
		}
		pairs = append(pairs, found...)
	}
	if len(names) == 0 && len(ids) == 0 {
		pairs = s.keyPairs.List()
	}

	var items strings.Builder
	for _, kp := range pairs {
		items.WriteString(keyPairItemXML(kp))
	}
	writeEC2(w, `<DescribeKeyPairsResponse %s>
  <requestId>%s</requestId>
  <keySet>%s</keySet>
</DescribeKeyPairsResponse>`, ec2Namespace, sim.RequestID(r.Context()), items.String())
}

func (s *ec2Service) handleCreateKeyPair(w http.ResponseWriter, r *http.Request) {
	name := r.FormValue("KeyName")
	if name == "" {
		sim.EC2ErrorXML(w, "MissingParameter", "The request must contain the parameter KeyName", sim.RequestID(r.Context()), http.StatusBadRequest)
		return
	}
	keyType := r.FormValue("KeyType")
	if keyType == "" {
		keyType = "rsa"
	}
	if keyType != "rsa" {
		sim.EC2ErrorXML(w, "InvalidParameterValue", "Only rsa key pairs are simulated", sim.RequestID(r.Context()), http.StatusBadRequest)
		return
	}

	material, fingerprint, err := generateRSAKeyPair()
	if err != nil {
		sim.EC2ErrorXML(w, "InternalError", err.Error(), sim.RequestID(r.Context()), http.StatusInternalServerError)
		return
	}

	kp := EC2KeyPair{
		KeyPairId:      ec2ID("key"),
		KeyName:        name,
		KeyFingerprint: fingerprint,
		KeyType:        keyType,
		Tags:           parseTagSpecifications(r, "key-pair"),
		CreateTime:     s.now(),
	}
	if !s.keyPairs.PutIfAbsent(name, kp) {
		sim.EC2ErrorXML(w, "InvalidKeyPair.Duplicate", fmt.Sprintf("The keypair '%s' already exists.", name), sim.RequestID(r.Context()), http.StatusBadRequest)
		return
	}

	writeEC2(w, `<CreateKeyPairResponse %s>
  <requestId>%s</requestId>
  <keyName>%s</keyName>
  <keyFingerprint>%s</keyFingerprint>
  <keyMaterial>%s</keyMaterial>
  <keyPairId>%s</keyPairId>
  %s
</CreateKeyPairResponse>`, ec2Namespace, sim.RequestID(r.Context()), sim.XMLEscape(name), fingerprint,
		sim.XMLEscape(material), kp.KeyPairId, writeTagSetXML(kp.Tags))
}

func (s *ec2Service) handleDeleteKeyPair(w http.ResponseWriter, r *http.Request) {
	name := r.FormValue("KeyName")
	id := r.FormValue("KeyPairId")
	if name == "" && id != "" {
		for _, kp := range s.keyPairs.Filter(func(kp EC2KeyPair) bool { return kp.KeyPairId == id }) {
			name = kp.KeyName
		}
	}
	// EC2 reports success for unknown key pairs
	if kp, ok := s.keyPairs.Get(name); ok {
		id = kp.KeyPairId
		s.keyPairs.Delete(name)
	}

	writeEC2(w, `<DeleteKeyPairResponse %s>
  <requestId>%s</requestId><return>true</return><keyPairId>%s</keyPairId>
</DeleteKeyPairResponse>`, ec2Namespace, sim.RequestID(r.Context()), id)
}

// generateRSAKeyPair returns a PEM private key and the AWS-style
// fingerprint (SHA-1 of the PKCS#8 DER encoding, colon separated).
func generateRSAKeyPair() (string, string, error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return "", "", err
	}
	pkcs8, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return "", "", err
	}
	sum := sha1.Sum(pkcs8)
	parts := make([]string, len(sum))
	for i, b := range sum {
		parts[i] = fmt.Sprintf("%02x", b)
	}
	block := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	return string(block), strings.Join(parts, ":"), nil
}

// ---- Images ----

func imageItemXML(img EC2Image) string {
	return fmt.Sprintf(`<item>
    <imageId>%s</imageId><imageLocation>%s/%s</imageLocation><imageState>%s</imageState>
    <imageOwnerId>%s</imageOwnerId><creationDate>%s</creationDate><isPublic>true</isPublic>
    <architecture>%s</architecture><imageType>machine</imageType><name>%s</name>
    <rootDeviceType>%s</rootDeviceType><virtualizationType>%s</virtualizationType>
  </item>`, img.ImageId, img.OwnerId, sim.XMLEscape(img.Name), img.State, img.OwnerId, img.CreationDate,
		img.Architecture, sim.XMLEscape(img.Name), img.RootDeviceType, img.VirtualizationType)
}

func imageMatches(img EC2Image, f sim.QueryFilter) bool {
	var field string
	switch f.Name {
	case "name":
		field = img.Name
	case "state":
		field = img.State
	case "root-device-type":
		field = img.RootDeviceType
	case "virtualization-type":
		field = img.VirtualizationType
	case "architecture":
		field = img.Architecture
	case "image-id":
		field = img.ImageId
	case "owner-id":
		field = img.OwnerId
	default:
		return true
	}
	for _, v := range f.Values {
		if sim.MatchWildcard(v, field) {
			return true
		}
	}
	return false
}

func (s *ec2Service) handleDescribeImages(w http.ResponseWriter, r *http.Request) {
	owners := sim.IndexedValues(r, "Owner")
	ids := sim.IndexedValues(r, "ImageId")
	filters := sim.ParseFilters(r)

	images := s.images.Filter(func(img EC2Image) bool {
		if len(owners) > 0 && !containsOwner(owners, img.OwnerId) {
			return false
		}
		if len(ids) > 0 && !contains(ids, img.ImageId) {
			return false
		}
		for _, f := range filters {
			if !imageMatches(img, f) {
				return false
			}
		}
		return true
	})

	var items strings.Builder
	for _, img := range images {
		items.WriteString(imageItemXML(img))
	}
	writeEC2(w, `<DescribeImagesResponse %s>
  <requestId>%s</requestId>
  <imagesSet>%s</imagesSet>
</DescribeImagesResponse>`, ec2Namespace, sim.RequestID(r.Context()), items.String())
}

func containsOwner(owners []string, id string) bool {
	for _, o := range owners {
		if o == id || (o == "self" && id == ec2Owner) {
			return true
		}
	}
	return false
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

// ---- Instances ----

func (s *ec2Service) instanceItemXML(inst EC2Instance) string {
	state := s.state(inst)
	return fmt.Sprintf(`<item>
      <instanceId>%s</instanceId><imageId>%s</imageId>
      <instanceState><code>%d</code><name>%s</name></instanceState>
      <privateDnsName>ip-%s.ec2.internal</privateDnsName><privateIpAddress>%s</privateIpAddress>
      <keyName>%s</keyName><amiLaunchIndex>0</amiLaunchIndex>
      <instanceType>%s</instanceType><launchTime>%s</launchTime>
      <placement><availabilityZone>us-east-2a</availabilityZone><tenancy>default</tenancy></placement>
      <architecture>x86_64</architecture><rootDeviceType>ebs</rootDeviceType><virtualizationType>hvm</virtualizationType>
      %s
    </item>`, inst.InstanceId, inst.ImageId, stateCodes[state], state,
		strings.ReplaceAll(inst.PrivateIp, ".", "-"), inst.PrivateIp, sim.XMLEscape(inst.KeyName),
		inst.InstanceType, inst.LaunchTime.UTC().Format(time.RFC3339), writeTagSetXML(inst.Tags))
}

func (s *ec2Service) handleRunInstances(w http.ResponseWriter, r *http.Request) {
	imageID := r.FormValue("ImageId")
	if _, ok := s.images.Get(imageID); !ok {
		ec2NotFound(w, r, "InvalidAMIID.NotFound", fmt.Sprintf("The image id '[%s]' does not exist", imageID))
		return
	}
	keyName := r.FormValue("KeyName")
	if keyName != "" {
		if _, ok := s.keyPairs.Get(keyName); !ok {
			ec2NotFound(w, r, "InvalidKeyPair.NotFound", fmt.Sprintf("The key pair '%s' does not exist", keyName))
			return
		}
	}
	instanceType := r.FormValue("InstanceType")
	if instanceType == "" {
		instanceType = "m1.small"
	}

	var count int
	fmt.Sscanf(r.FormValue("MaxCount"), "%d", &count)
	if count < 1 {
		sim.EC2ErrorXML(w, "InvalidParameterValue", "MaxCount must be at least 1", sim.RequestID(r.Context()), http.StatusBadRequest)
		return
	}

	reservationID := ec2ID("r")
	tags := parseTagSpecifications(r, "instance")
	var items strings.Builder
	for i := 0; i < count; i++ {
		inst := EC2Instance{
			InstanceId:    ec2ID("i"),
			ReservationId: reservationID,
			ImageId:       imageID,
			InstanceType:  instanceType,
			KeyName:       keyName,
			Tags:          tags,
			LaunchTime:    s.now(),
			PrivateIp:     fmt.Sprintf("172.31.%d.%d", s.instances.Len()/250, 10+s.instances.Len()%250),
		}
		s.instances.Put(inst.InstanceId, inst)
		items.WriteString(s.instanceItemXML(inst))
	}

	writeEC2(w, `<RunInstancesResponse %s>
  <requestId>%s</requestId>
  <reservationId>%s</reservationId>
  <ownerId>%s</ownerId>
  <groupSet/>
  <instancesSet>%s</instancesSet>
</RunInstancesResponse>`, ec2Namespace, sim.RequestID(r.Context()), reservationID, ec2Owner, items.String())
}

func (s *ec2Service) instanceMatches(inst EC2Instance, f sim.QueryFilter) bool {
	var fields []string
	switch {
	case f.Name == "instance-state-name":
		fields = []string{s.state(inst)}
	case f.Name == "instance-id":
		fields = []string{inst.InstanceId}
	case f.Name == "image-id":
		fields = []string{inst.ImageId}
	case f.Name == "key-name":
		fields = []string{inst.KeyName}
	case f.Name == "instance-type":
		fields = []string{inst.InstanceType}
	case f.Name == "tag-key":
		for _, t := range inst.Tags {
			fields = append(fields, t.Key)
		}
	case strings.HasPrefix(f.Name, "tag:"):
		v, ok := tagValue(inst.Tags, strings.TrimPrefix(f.Name, "tag:"))
		if !ok {
			return false
		}
		fields = []string{v}
	default:
		return true
	}
	for _, field := range fields {
		for _, v := range f.Values {
			if sim.MatchWildcard(v, field) {
				return true
			}
		}
	}
	return false
}

func (s *ec2Service) handleDescribeInstances(w http.ResponseWriter, r *http.Request) {
	ids := sim.IndexedValues(r, "InstanceId")
	filters := sim.ParseFilters(r)

	for _, id := range ids {
		if _, ok := s.instances.Get(id); !ok {
			ec2NotFound(w, r, "InvalidInstanceID.NotFound", fmt.Sprintf("The instance ID '%s' does not exist", id))
			return
		}
	}

	instances := s.instances.Filter(func(inst EC2Instance) bool {
		if len(ids) > 0 && !contains(ids, inst.InstanceId) {
			return false
		}
		for _, f := range filters {
			if !s.instanceMatches(inst, f) {
				return false
			}
		}
		return true
	})

	// group by reservation, keeping launch order
	sort.SliceStable(instances, func(i, j int) bool {
		return instances[i].LaunchTime.Before(instances[j].LaunchTime)
	})
	var order []string
	byReservation := make(map[string][]EC2Instance)
	for _, inst := range instances {
		if _, seen := byReservation[inst.ReservationId]; !seen {
			order = append(order, inst.ReservationId)
		}
		byReservation[inst.ReservationId] = append(byReservation[inst.ReservationId], inst)
	}

	var items strings.Builder
	for _, rid := range order {
		var set strings.Builder
		for _, inst := range byReservation[rid] {
			set.WriteString(s.instanceItemXML(inst))
		}
		fmt.Fprintf(&items, `<item>
    <reservationId>%s</reservationId><ownerId>%s</ownerId><groupSet/>
    <instancesSet>%s</instancesSet>
  </item>`, rid, ec2Owner, set.String())
	}

	writeEC2(w, `<DescribeInstancesResponse %s>
  <requestId>%s</requestId>
  <reservationSet>%s</reservationSet>
</DescribeInstancesResponse>`, ec2Namespace, sim.RequestID(r.Context()), items.String())
}

func (s *ec2Service) handleTerminateInstances(w http.ResponseWriter, r *http.Request) {
	ids := sim.IndexedValues(r, "InstanceId")
	if len(ids) == 0 {
		sim.EC2ErrorXML(w, "MissingParameter", "The request must contain the parameter InstanceId", sim.RequestID(r.Context()), http.StatusBadRequest)
		return
	}
	for _, id := range ids {
		if _, ok := s.instances.Get(id); !ok {
			ec2NotFound(w, r, "InvalidInstanceID.NotFound", fmt.Sprintf("The instance ID '%s' does not exist", id))
			return
		}
	}

	var items strings.Builder
	for _, id := range ids {
		var previous, current string
		s.instances.Update(id, func(inst *EC2Instance) {
			previous = s.state(*inst)
			if inst.TerminatedAt == nil {
				now := s.now()
				inst.TerminatedAt = &now
			}
			current = s.state(*inst)
		})
		fmt.Fprintf(&items, `<item>
    <instanceId>%s</instanceId>
    <currentState><code>%d</code><name>%s</name></currentState>
    <previousState><code>%d</code><name>%s</name></previousState>
  </item>`, id, stateCodes[current], current, stateCodes[previous], previous)
	}

	writeEC2(w, `<TerminateInstancesResponse %s>
  <requestId>%s</requestId>
  <instancesSet>%s</instancesSet>
</TerminateInstancesResponse>`, ec2Namespace, sim.RequestID(r.Context()), items.String())
}
