// Package scene loads and saves JSON scene files and builds their bodies,
// soft bodies and constraints into a physics world.
package scene

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"rigid3d/internal/physics"
	"rigid3d/internal/shape"
	"strconv"

	rl "github.com/gen2brain/raylib-go/raylib"
)

var (
	ErrNoShape      = errors.New("scene: object has no shape")
	ErrUnknownShape = errors.New("scene: unknown shape")
	ErrUnknownBody  = errors.New("scene: unknown body")
	ErrUnknownType  = errors.New("scene: unknown type")
)

// --- JSON types ---

type File struct {
	Objects    []ObjectDef   `json:"objects"`
	SoftBodies []SoftBodyDef `json:"softBodies,omitempty"`
	Springs    []SpringDef   `json:"springs,omitempty"`
}

// ObjectDef is a rigid body. Rotation holds Euler angles in degrees.
type ObjectDef struct {
	Name            string            `json:"name"`
	Color           string            `json:"color,omitempty"`
	Position        [3]float32        `json:"position"`
	Rotation        [3]float32        `json:"rotation"`
	Velocity        [3]float32        `json:"velocity,omitempty"`
	AngularVelocity [3]float32        `json:"angularVelocity,omitempty"`
	Components      []json.RawMessage `json:"components"`
}

// SoftBodyDef describes a cloth grid or an explicit point and edge mesh.
// Points of a soft body are addressable by springs as "name[i]".
type SoftBodyDef struct {
	Name          string       `json:"name"`
	Type          string       `json:"type"`
	Color         string       `json:"color,omitempty"`
	Position      [3]float32   `json:"position"`
	Size          [2]int       `json:"size,omitempty"`
	Scale         float32      `json:"scale,omitempty"`
	Points        [][3]float32 `json:"points,omitempty"`
	Edges         [][2]int     `json:"edges,omitempty"`
	PointRadius   float32      `json:"pointRadius,omitempty"`
	PointMass     float32      `json:"pointMass,omitempty"`
	Softness      *float32     `json:"softness,omitempty"`
	Bias          *float32     `json:"bias,omitempty"`
	SelfCollision *bool        `json:"selfCollision,omitempty"`
}

// SpringDef joins two named bodies. Without anchors a "Spring" joins the
// body centres; a "PointToPoint" joins two world-space anchors.
type SpringDef struct {
	Type       string      `json:"type"`
	Body1      string      `json:"body1"`
	Body2      string      `json:"body2"`
	Anchor1    *[3]float32 `json:"anchor1,omitempty"`
	Anchor2    *[3]float32 `json:"anchor2,omitempty"`
	Distance   *float32    `json:"distance,omitempty"`
	Behavior   string      `json:"behavior,omitempty"`
	Softness   *float32    `json:"softness,omitempty"`
	BiasFactor *float32    `json:"biasFactor,omitempty"`
}

type componentHeader struct {
	Type string `json:"type"`
}

// shapeDef is a "Shape" component, or a child of a compound shape.
type shapeDef struct {
	Type     string     `json:"type,omitempty"`
	Shape    string     `json:"shape"`
	Size     [3]float32 `json:"size,omitempty"`
	Radius   float32    `json:"radius,omitempty"`
	Position [3]float32 `json:"position,omitempty"`
	Rotation [3]float32 `json:"rotation,omitempty"`
	Children []shapeDef `json:"children,omitempty"`
}

type rigidbodyDef struct {
	Type              string       `json:"type"`
	Mass              float32      `json:"mass,omitempty"`
	Static            bool         `json:"static,omitempty"`
	UseGravity        *bool        `json:"useGravity,omitempty"`
	AllowDeactivation *bool        `json:"allowDeactivation,omitempty"`
	Speculative       bool         `json:"speculative,omitempty"`
	Damping           string       `json:"damping,omitempty"`
	Material          *materialDef `json:"material,omitempty"`
}

type materialDef struct {
	KineticFriction float32 `json:"kineticFriction"`
	StaticFriction  float32 `json:"staticFriction"`
	Restitution     float32 `json:"restitution"`
}

// --- Color mapping ---

var colorByName = map[string]rl.Color{
	"Red":       rl.Red,
	"Blue":      rl.Blue,
	"Green":     rl.Green,
	"Purple":    rl.Purple,
	"Orange":    rl.Orange,
	"Yellow":    rl.Yellow,
	"Pink":      rl.Pink,
	"SkyBlue":   rl.SkyBlue,
	"Lime":      rl.Lime,
	"Magenta":   rl.Magenta,
	"White":     rl.White,
	"LightGray": rl.LightGray,
	"Gray":      rl.Gray,
	"DarkGray":  rl.DarkGray,
	"Brown":     rl.Brown,
	"Beige":     rl.Beige,
	"Maroon":    rl.Maroon,
	"Gold":      rl.Gold,
}

// LookupColor maps a color name to a raylib color, white when unknown.
func LookupColor(name string) rl.Color {
	if c, ok := colorByName[name]; ok {
		return c
	}
	return rl.White
}

var dampingByName = map[string]physics.DampingType{
	"none":    physics.DampNone,
	"linear":  physics.DampLinear,
	"angular": physics.DampAngular,
	"both":    physics.DampBoth,
}

var behaviorByName = map[string]physics.DistanceBehavior{
	"distance": physics.LimitDistance,
	"max":      physics.LimitMaximumDistance,
	"min":      physics.LimitMinimumDistance,
}

func vec(a [3]float32) rl.Vector3 {
	return rl.Vector3{X: a[0], Y: a[1], Z: a[2]}
}

func arr(v rl.Vector3) [3]float32 {
	return [3]float32{v.X, v.Y, v.Z}
}

func eulerToQuaternion(deg [3]float32) rl.Quaternion {
	if deg == [3]float32{} {
		return rl.QuaternionIdentity()
	}
	return rl.QuaternionFromEuler(deg[0]*rl.Deg2rad, deg[1]*rl.Deg2rad, deg[2]*rl.Deg2rad)
}

func quaternionToEuler(q rl.Quaternion) [3]float32 {
	e := rl.QuaternionToEuler(q)
	return [3]float32{e.X * rl.Rad2deg, e.Y * rl.Rad2deg, e.Z * rl.Rad2deg}
}

// PointName names point i of a soft body.
func PointName(softBody string, i int) string {
	return softBody + "[" + strconv.Itoa(i) + "]"
}

// --- Loading ---

func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scene: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*File, error) {
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse scene: %w", err)
	}
	return &f, nil
}

// Build adds every object, soft body and spring of f to w. Bodies get their
// name as Tag. The returned map holds rigid bodies by name and soft body
// points by PointName. On error, objects added so far stay in the world.
func (f *File) Build(w *physics.World) (map[string]*physics.Body, error) {
	bodies := make(map[string]*physics.Body, len(f.Objects))

	for _, def := range f.Objects {
		b, err := buildObject(def)
		if err != nil {
			return bodies, fmt.Errorf("object %q: %w", def.Name, err)
		}
		if err := w.AddBody(b); err != nil {
			return bodies, fmt.Errorf("object %q: %w", def.Name, err)
		}
		bodies[def.Name] = b
	}

	for _, def := range f.SoftBodies {
		sb, err := buildSoftBody(def)
		if err != nil {
			return bodies, fmt.Errorf("soft body %q: %w", def.Name, err)
		}
		if err := w.AddSoftBody(sb); err != nil {
			return bodies, fmt.Errorf("soft body %q: %w", def.Name, err)
		}
		for i, p := range sb.Points() {
			name := PointName(def.Name, i)
			p.Tag = name
			bodies[name] = p
		}
	}

	for i, def := range f.Springs {
		c, err := buildSpring(def, bodies)
		if err != nil {
			return bodies, fmt.Errorf("spring %d: %w", i, err)
		}
		if err := w.AddConstraint(c); err != nil {
			return bodies, fmt.Errorf("spring %d: %w", i, err)
		}
	}

	return bodies, nil
}

func buildObject(def ObjectDef) (*physics.Body, error) {
	var s shape.Shape
	rb := rigidbodyDef{Mass: 1}

	for _, raw := range def.Components {
		var header componentHeader
		if err := json.Unmarshal(raw, &header); err != nil {
			continue
		}

		switch header.Type {
		case "Shape":
			var sd shapeDef
			if err := json.Unmarshal(raw, &sd); err != nil {
				return nil, err
			}
			built, err := buildShape(sd)
			if err != nil {
				return nil, err
			}
			s = built
		case "Rigidbody":
			if err := json.Unmarshal(raw, &rb); err != nil {
				return nil, err
			}
		}
	}
	if s == nil {
		return nil, ErrNoShape
	}

	mass := rb.Mass
	if rb.Static {
		mass = 0
	}
	b := physics.NewBody(s, mass)
	b.Tag = def.Name
	b.SetPosition(vec(def.Position))
	b.SetOrientation(eulerToQuaternion(def.Rotation))
	b.SetLinearVelocity(vec(def.Velocity))
	b.SetAngularVelocity(vec(def.AngularVelocity))
	b.SetSpeculativeContacts(rb.Speculative)

	if rb.UseGravity != nil {
		b.AffectedByGravity = *rb.UseGravity
	}
	if rb.AllowDeactivation != nil {
		b.AllowDeactivation = *rb.AllowDeactivation
	}
	if rb.Damping != "" {
		d, ok := dampingByName[rb.Damping]
		if !ok {
			return nil, fmt.Errorf("damping %q: %w", rb.Damping, ErrUnknownType)
		}
		b.Damping = d
	}
	if m := rb.Material; m != nil {
		b.SetMaterial(physics.Material{
			KineticFriction: m.KineticFriction,
			StaticFriction:  m.StaticFriction,
			Restitution:     m.Restitution,
		})
	}
	return b, nil
}

func buildShape(def shapeDef) (shape.Shape, error) {
	switch def.Shape {
	case "box":
		return shape.NewBox(vec(def.Size)), nil
	case "sphere":
		return shape.NewSphere(def.Radius), nil
	case "compound":
		children := make([]shape.Child, 0, len(def.Children))
		for _, cd := range def.Children {
			if cd.Shape == "compound" {
				return nil, fmt.Errorf("nested compound: %w", ErrUnknownShape)
			}
			s, err := buildShape(cd)
			if err != nil {
				return nil, err
			}
			children = append(children, shape.Child{
				Shape:       s,
				Position:    vec(cd.Position),
				Orientation: eulerToQuaternion(cd.Rotation),
			})
		}
		return shape.NewCompound(children...), nil
	}
	return nil, fmt.Errorf("%q: %w", def.Shape, ErrUnknownShape)
}

func buildSoftBody(def SoftBodyDef) (*physics.SoftBody, error) {
	mass := def.PointMass
	if mass <= 0 {
		mass = 1
	}

	var sb *physics.SoftBody
	var err error
	switch def.Type {
	case "cloth":
		scale := def.Scale
		if scale <= 0 {
			scale = 1
		}
		sb, err = physics.NewCloth(def.Size[0], def.Size[1], scale, mass)
	case "mesh":
		radius := def.PointRadius
		if radius <= 0 {
			radius = 0.1
		}
		points := make([]rl.Vector3, len(def.Points))
		for i, p := range def.Points {
			points[i] = vec(p)
		}
		sb, err = physics.NewSoftBody(points, def.Edges, radius, mass)
	default:
		return nil, fmt.Errorf("%q: %w", def.Type, ErrUnknownType)
	}
	if err != nil {
		return nil, err
	}

	if def.Softness != nil {
		sb.SpringSoftness = *def.Softness
	}
	if def.Bias != nil {
		sb.SpringBias = *def.Bias
	}
	if def.SelfCollision != nil {
		sb.SelfCollision = *def.SelfCollision
	}
	sb.Translate(vec(def.Position))
	return sb, nil
}

func buildSpring(def SpringDef, bodies map[string]*physics.Body) (physics.Constraint, error) {
	b1, ok := bodies[def.Body1]
	if !ok {
		return nil, fmt.Errorf("%q: %w", def.Body1, ErrUnknownBody)
	}
	b2, ok := bodies[def.Body2]
	if !ok {
		return nil, fmt.Errorf("%q: %w", def.Body2, ErrUnknownBody)
	}

	behavior := physics.LimitDistance
	if def.Behavior != "" {
		bh, ok := behaviorByName[def.Behavior]
		if !ok {
			return nil, fmt.Errorf("behavior %q: %w", def.Behavior, ErrUnknownType)
		}
		behavior = bh
	}

	switch def.Type {
	case "Spring":
		s := physics.NewSpring(b1, b2)
		s.Behavior = behavior
		setOptional(&s.Distance, def.Distance)
		setOptional(&s.Softness, def.Softness)
		setOptional(&s.BiasFactor, def.BiasFactor)
		return s, nil
	case "PointToPoint":
		a1, a2 := b1.Position(), b2.Position()
		if def.Anchor1 != nil {
			a1 = vec(*def.Anchor1)
		}
		if def.Anchor2 != nil {
			a2 = vec(*def.Anchor2)
		}
		p := physics.NewPointPointDistance(b1, b2, a1, a2)
		p.Behavior = behavior
		setOptional(&p.Distance, def.Distance)
		setOptional(&p.Softness, def.Softness)
		setOptional(&p.BiasFactor, def.BiasFactor)
		return p, nil
	}
	return nil, fmt.Errorf("%q: %w", def.Type, ErrUnknownType)
}

func setOptional(dst, src *float32) {
	if src != nil {
		*dst = *src
	}
}

// --- Saving ---

// Capture snapshots the rigid bodies, soft bodies and springs of w. Body
// names come from a string Tag, or "body<id>" otherwise.
func Capture(w *physics.World) (*File, error) {
	var f File
	names := make(map[*physics.Body]string)

	for _, b := range w.Bodies() {
		if b.SoftBody() != nil {
			continue
		}
		name, ok := b.Tag.(string)
		if !ok || name == "" {
			name = "body" + strconv.FormatUint(b.ID(), 10)
		}
		names[b] = name

		def, err := captureObject(name, b)
		if err != nil {
			return nil, err
		}
		f.Objects = append(f.Objects, def)
	}

	for i, sb := range w.SoftBodies() {
		if len(sb.Points()) == 0 {
			continue
		}
		name := fmt.Sprintf("softbody%d", i)
		soft, bias, self := sb.SpringSoftness, sb.SpringBias, sb.SelfCollision
		def := SoftBodyDef{
			Name:          name,
			Type:          "mesh",
			Edges:         sb.Edges(),
			PointRadius:   pointRadius(sb),
			PointMass:     sb.Points()[0].Mass(),
			Softness:      &soft,
			Bias:          &bias,
			SelfCollision: &self,
		}
		for j, p := range sb.Points() {
			def.Points = append(def.Points, arr(p.Position()))
			names[p] = PointName(name, j)
		}
		f.SoftBodies = append(f.SoftBodies, def)
	}

	for _, c := range w.Constraints() {
		if def, ok := captureSpring(c, names); ok {
			f.Springs = append(f.Springs, def)
		}
	}
	return &f, nil
}

func pointRadius(sb *physics.SoftBody) float32 {
	if s, ok := sb.Points()[0].Shape().(*shape.Sphere); ok {
		return s.Radius
	}
	return 0
}

func captureObject(name string, b *physics.Body) (ObjectDef, error) {
	sd, err := captureShape(b.Shape())
	if err != nil {
		return ObjectDef{}, fmt.Errorf("object %q: %w", name, err)
	}
	sd.Type = "Shape"

	gravity, sleep := b.AffectedByGravity, b.AllowDeactivation
	m := b.Material()
	rb := rigidbodyDef{
		Type:              "Rigidbody",
		Mass:              b.Mass(),
		Static:            b.IsStatic(),
		UseGravity:        &gravity,
		AllowDeactivation: &sleep,
		Speculative:       b.SpeculativeContacts(),
		Material: &materialDef{
			KineticFriction: m.KineticFriction,
			StaticFriction:  m.StaticFriction,
			Restitution:     m.Restitution,
		},
	}
	for n, d := range dampingByName {
		if d == b.Damping {
			rb.Damping = n
		}
	}

	def := ObjectDef{
		Name:            name,
		Position:        arr(b.Position()),
		Rotation:        quaternionToEuler(b.Orientation()),
		Velocity:        arr(b.LinearVelocity()),
		AngularVelocity: arr(b.AngularVelocity()),
	}
	for _, c := range []any{sd, rb} {
		raw, err := json.Marshal(c)
		if err != nil {
			return ObjectDef{}, err
		}
		def.Components = append(def.Components, raw)
	}
	return def, nil
}

func captureShape(s shape.Shape) (shapeDef, error) {
	switch sh := s.(type) {
	case *shape.Box:
		return shapeDef{Shape: "box", Size: arr(sh.Size)}, nil
	case *shape.Sphere:
		return shapeDef{Shape: "sphere", Radius: sh.Radius}, nil
	case *shape.Compound:
		def := shapeDef{Shape: "compound"}
		for _, ch := range sh.Children {
			cd, err := captureShape(ch.Shape)
			if err != nil {
				return shapeDef{}, err
			}
			cd.Position = arr(ch.Position)
			cd.Rotation = quaternionToEuler(ch.Orientation)
			def.Children = append(def.Children, cd)
		}
		return def, nil
	}
	return shapeDef{}, fmt.Errorf("%T: %w", s, ErrUnknownShape)
}

func captureSpring(c physics.Constraint, names map[*physics.Body]string) (SpringDef, bool) {
	switch s := c.(type) {
	case *physics.Spring:
		// Soft body edges are rebuilt from the edge list
		if s.Body1().SoftBody() != nil && s.Body1().SoftBody() == s.Body2().SoftBody() {
			return SpringDef{}, false
		}
		d, soft, bias := s.Distance, s.Softness, s.BiasFactor
		return SpringDef{
			Type:       "Spring",
			Body1:      names[s.Body1()],
			Body2:      names[s.Body2()],
			Distance:   &d,
			Behavior:   behaviorName(s.Behavior),
			Softness:   &soft,
			BiasFactor: &bias,
		}, true
	case *physics.PointPointDistance:
		a1, a2 := s.Anchors()
		v1, v2 := arr(a1), arr(a2)
		d, soft, bias := s.Distance, s.Softness, s.BiasFactor
		return SpringDef{
			Type:       "PointToPoint",
			Body1:      names[s.Body1()],
			Body2:      names[s.Body2()],
			Anchor1:    &v1,
			Anchor2:    &v2,
			Distance:   &d,
			Behavior:   behaviorName(s.Behavior),
			Softness:   &soft,
			BiasFactor: &bias,
		}, true
	}
	return SpringDef{}, false
}

func behaviorName(b physics.DistanceBehavior) string {
	for n, bh := range behaviorByName {
		if bh == b {
			return n
		}
	}
	return ""
}

func Save(path string, f *File) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal scene: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write scene: %w", err)
	}

	return nil
}
