package sessionlog

import "rollcall/internal/textutil"

// Field identifies a canonical export column.
type Field string

const (
	FieldName        Field = "name"
	FieldEmail       Field = "email"
	FieldJoinTime    Field = "join_time"
	FieldLeaveTime   Field = "leave_time"
	FieldDuration    Field = "duration"
	FieldGuest       Field = "guest"
	FieldWaitingRoom Field = "waiting_room"
)

// headerSynonyms maps folded header labels to canonical fields. Keys are
// stored already normalized through textutil.NormalizeName.
var headerSynonyms = func() map[string]Field {
	raw := map[Field][]string{
		FieldName: {
			"name", "name (original name)", "participant", "participant name", "display name", "user name",
			"nome", "nome (nome original)", "nome do participante", "participante", "nome de exibicao",
			"nombre", "nombre (nombre original)", "nombre del participante",
		},
		FieldEmail: {
			"email", "e-mail", "user email", "email address",
			"e-mail do usuario", "email do usuario", "endereco de e-mail",
			"correo", "correo electronico", "correo electronico del usuario",
		},
		FieldJoinTime: {
			"join time", "joined", "join", "first join",
			"hora de entrada", "entrada", "horario de entrada",
			"hora de ingreso", "hora de union", "ingreso",
		},
		FieldLeaveTime: {
			"leave time", "left", "leave", "last leave",
			"hora de saida", "saida", "horario de saida",
			"hora de salida", "salida",
		},
		FieldDuration: {
			"duration", "duration (minutes)", "duration (mins)", "total duration (minutes)",
			"duracao", "duracao (minutos)", "duracao (min)",
			"duracion", "duracion (minutos)",
		},
		FieldGuest: {
			"guest", "is guest",
			"convidado", "e convidado",
			"invitado",
		},
		FieldWaitingRoom: {
			"in waiting room", "waiting room",
			"na sala de espera", "sala de espera",
			"en la sala de espera",
		},
	}
	out := make(map[string]Field)
	for field, labels := range raw {
		for _, label := range labels {
			out[textutil.NormalizeName(label)] = field
		}
	}
	return out
}()

// resolveHeader maps each header cell to a canonical field. Unknown columns
// are ignored; the first occurrence of a field wins.
func resolveHeader(cells []string) map[Field]int {
	index := make(map[Field]int, len(cells))
	for i, cell := range cells {
		field, ok := headerSynonyms[textutil.NormalizeName(cell)]
		if !ok {
			continue
		}
		if _, seen := index[field]; seen {
			continue
		}
		index[field] = i
	}
	return index
}
