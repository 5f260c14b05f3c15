package roster

// 出欠対象者（生徒・教員・職員）の読み取り用マスタ。
// 本体のCRUDは管理系の別サービスが持つので、ここでは参照のみ。

// AttendableType: 旧実装のポリモーフィック関連をタグ付きの列挙に置き換えたもの
type AttendableType string

const (
	TypeStudent AttendableType = "STUDENT"
	TypeTeacher AttendableType = "TEACHER"
	TypeStaff   AttendableType = "STAFF"
)

func (t AttendableType) Valid() bool {
	switch t {
	case TypeStudent, TypeTeacher, TypeStaff:
		return true
	}
	return false
}

// AttendableRef: (種別, ID) の参照。出欠レコードのキーの一部になる
type AttendableRef struct {
	Type AttendableType
	ID   uint64
}

// Assignment: スケジュール解決に必要な所属情報。
// 教室未割当の生徒は Level が空になり、呼び出し側で CONFIG_MISSING 扱いとする。
type Assignment struct {
	Ref       AttendableRef
	FullName  string
	Level     string // inicial / primaria / secundaria
	Grade     string
	Section   string
	Shift     string // morning / afternoon（未設定なら空）
	Active    bool
}

// Filter: 帳票・一覧の絞り込み条件
type Filter struct {
	Type    *AttendableType
	Level   *string
	Grade   *string
	Section *string
	Shift   *string
}
